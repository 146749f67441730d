package digest

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/myjournal/backend/app/database"
)

const (
	recencyHorizonHours = 48
	recencyWeight       = 1.4
	lengthWeight        = 0.8
)

// score favors recently updated articles, with a smaller bonus for length
// that saturates at ten minutes.
func score(article database.Article, now time.Time) float64 {
	hours := now.Sub(article.UpdatedAt).Hours()
	recency := math.Max(0, recencyHorizonHours-hours)
	length := math.Min(1, float64(article.ReadingMinutes)/10)
	return recency*recencyWeight + length*lengthWeight
}

// rank orders articles by descending score. Ties keep their input order.
func rank(articles []database.Article, now time.Time) []database.Article {
	ranked := slices.Clone(articles)
	scores := make(map[string]float64, len(ranked))
	for _, a := range ranked {
		scores[a.ID] = score(a, now)
	}

	slices.SortStableFunc(ranked, func(a, b database.Article) int {
		switch sa, sb := scores[a.ID], scores[b.ID]; {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

func hostKey(article database.Article) string {
	for _, v := range []string{article.Host, article.Source} {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return strings.TrimPrefix(v, "www.")
		}
	}
	return "other"
}

// diversify picks up to limit articles in ranked order, skipping any whose
// host already contributed perHost picks.
func diversify(ranked []database.Article, limit, perHost int) []database.Article {
	picked := make([]database.Article, 0, min(limit, len(ranked)))
	counts := make(map[string]int)

	for _, article := range ranked {
		if len(picked) >= limit {
			break
		}
		host := hostKey(article)
		if counts[host] >= perHost {
			continue
		}
		counts[host]++
		picked = append(picked, article)
	}
	return picked
}

type sectioned struct {
	article  database.Article
	category database.Category
}

// section splits picked articles into top, emerging and long reads and
// returns them in final display order.
func section(picked []database.Article) []sectioned {
	nTop := min(topCount, len(picked))
	rest := picked[nTop:]

	var long, emerging []database.Article
	for _, a := range rest {
		if a.ReadingMinutes >= LongReadMinutes && len(long) < longCap {
			long = append(long, a)
		}
	}
	emergingCap := sectionSlots - len(long)
	for _, a := range rest {
		if a.ReadingMinutes < LongReadMinutes && len(emerging) < emergingCap {
			emerging = append(emerging, a)
		}
	}

	out := make([]sectioned, 0, nTop+len(emerging)+len(long))
	for _, a := range picked[:nTop] {
		out = append(out, sectioned{a, database.CategoryTop})
	}
	for _, a := range emerging {
		out = append(out, sectioned{a, database.CategoryEmerging})
	}
	for _, a := range long {
		out = append(out, sectioned{a, database.CategoryLong})
	}
	return out
}

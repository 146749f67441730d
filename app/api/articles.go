package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/myjournal/backend/app/database"
	"github.com/myjournal/backend/app/feed"
	"github.com/myjournal/backend/app/urlutil"
)

const (
	defaultPageSize     = 30
	maxPageSize         = 100
	defaultRefreshLimit = 48
	maxRefreshLimit     = 100
	maxTags             = 20
	manualSource        = "manual"
)

func (h *Handler) ListArticles(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	page = max(page, 1)
	limit = min(max(limit, 1), maxPageSize)

	items, total, err := h.articles.ListArticles(c.Request.Context(), database.ArticleFilter{
		UserID: userID(c),
		Query:  strings.TrimSpace(c.Query("q")),
		Tag:    strings.TrimSpace(c.Query("tag")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if items == nil {
		items = []database.Article{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "page": page, "total": total})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, ok := h.loadArticle(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": article})
}

func (h *Handler) ImportArticle(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		badRequest(c, "url is required")
		return
	}

	parsed, err := h.reader.Fetch(c.Request.Context(), url)
	if err != nil {
		slog.Warn("Article import failed", "url", url, "error", err)
		badRequest(c, "Could not parse article")
		return
	}

	set := parsed.Patch()
	set.LastSeenAt = database.Ptr(h.now())
	if req.Tags != nil {
		set.Tags = database.Ptr(cleanTags(req.Tags))
	}

	article, _, err := h.articles.UpsertArticle(c.Request.Context(), userID(c), url, set,
		database.ArticlePatch{Source: database.Ptr(manualSource)})
	if err != nil {
		slog.Error("Database error", "operation", "import_article", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": article})
}

func (h *Handler) UpdateArticle(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	article, ok := h.loadArticle(c, c.Param("id"))
	if !ok {
		return
	}

	var set database.ArticlePatch
	if req.Reparse {
		parsed, err := h.reader.Fetch(c.Request.Context(), article.URL)
		if err != nil {
			slog.Warn("Article reparse failed", "url", article.URL, "error", err)
			badRequest(c, "Could not parse article")
			return
		}
		set = parsed.Patch()
	}
	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != "" {
			set.Title = database.Ptr(title)
		}
	}
	if req.Tags != nil {
		set.Tags = database.Ptr(cleanTags(*req.Tags))
	}
	set.LastSeenAt = database.Ptr(h.now())

	updated, _, err := h.articles.UpsertArticle(c.Request.Context(), userID(c), article.URL, set, database.ArticlePatch{})
	if err != nil {
		slog.Error("Database error", "operation", "update_article", "user_id", userID(c), "id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": updated})
}

func (h *Handler) DeleteArticle(c *gin.Context) {
	deleted, err := h.articles.DeleteArticle(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		slog.Error("Database error", "operation", "delete_article", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RefreshArticles is the user-triggered pull: every URL it touches is marked
// as seen now. With force, known articles are re-read as well.
func (h *Handler) RefreshArticles(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultRefreshLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	limit = min(max(limit, 1), maxRefreshLimit)

	force, err := queryBool(c, "force")
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	topics := queryList(c, "topics")
	if topics == nil {
		topics = []string{}
	}

	ctx := c.Request.Context()
	uid := userID(c)
	now := h.now()

	var candidates []feed.Candidate
	seenURL := make(map[string]bool)
	for _, cand := range h.candidates.Fetch(ctx, 2*limit, topics) {
		cand.URL = urlutil.NormalizeURL(cand.URL)
		if cand.URL == "" || seenURL[cand.URL] {
			continue
		}
		seenURL[cand.URL] = true
		candidates = append(candidates, cand)
		if len(candidates) == limit {
			break
		}
	}

	items := []database.Article{}
	imported, updated := 0, 0

	for _, cand := range candidates {
		existing, err := h.articles.GetArticleByURL(ctx, uid, cand.URL)
		if err != nil {
			slog.Error("Database error", "operation", "refresh_articles", "user_id", uid, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		set := database.ArticlePatch{LastSeenAt: database.Ptr(now)}
		if existing == nil || force {
			parsed, err := h.reader.Fetch(ctx, cand.URL)
			if err != nil {
				slog.Debug("Skipping unreadable article", "url", cand.URL, "error", err)
				if existing == nil {
					continue
				}
			} else {
				set = parsed.Patch()
				set.LastSeenAt = database.Ptr(now)
			}
		}

		source := cand.Source
		if source == "" {
			source = urlutil.Host(cand.URL)
		}
		if existing != nil && existing.Source == "" {
			set.Source = database.Ptr(source)
		}

		article, created, err := h.articles.UpsertArticle(ctx, uid, cand.URL, set,
			database.ArticlePatch{Source: database.Ptr(source)})
		if err != nil {
			slog.Error("Database error", "operation", "refresh_articles", "user_id", uid, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		if created {
			imported++
		} else {
			updated++
		}
		items = append(items, *article)
	}

	slog.Info("Articles refreshed", "user_id", uid, "candidates", len(candidates), "imported", imported, "updated", updated)

	c.JSON(http.StatusCreated, gin.H{
		"items":    items,
		"imported": imported,
		"updated":  updated,
		"seen":     len(items),
		"topics":   topics,
	})
}

func (h *Handler) loadArticle(c *gin.Context, id string) (*database.Article, bool) {
	article, err := h.articles.GetArticle(c.Request.Context(), userID(c), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return nil, false
	}
	return article, true
}

func cleanTags(tags []string) []string {
	out := []string{}
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
		if len(out) == maxTags {
			break
		}
	}
	return out
}

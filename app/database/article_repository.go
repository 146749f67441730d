package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myjournal/backend/app/urlutil"
)

var _ ArticleRepository = (*articleRepository)(nil)

const articleColumns = `id, user_id, url, title, byline, excerpt, full_content, image_url,
	reading_minutes, source, tags, last_seen_at, created_at, updated_at`

type articleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) GetArticle(ctx context.Context, userID, id string) (*Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE user_id = ? AND id = ?`, userID, id)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

func (r *articleRepository) GetArticleByURL(ctx context.Context, userID, url string) (*Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE user_id = ? AND url = ?`,
		userID, urlutil.NormalizeURL(url))

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by url: %w", err)
	}

	return article, nil
}

func (r *articleRepository) ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, int, error) {
	where := []string{"user_id = ?"}
	args := []any{filter.UserID}

	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, `(title LIKE ? ESCAPE '\' OR excerpt LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(articles.tags) WHERE json_each.value = ?)`)
		args = append(args, tag)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE `+clause+`
		ORDER BY last_seen_at DESC, updated_at DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, max(0, filter.Offset))...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

// ListRecentArticles returns the user's articles ordered by last_seen_at then
// updated_at, newest first. A nil since disables the freshness window.
func (r *articleRepository) ListRecentArticles(ctx context.Context, userID string, since *time.Time, limit int) ([]Article, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if since != nil {
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+articleColumns+`
			FROM articles
			WHERE user_id = ? AND last_seen_at >= ?
			ORDER BY last_seen_at DESC, updated_at DESC
			LIMIT ?
		`, userID, toMillis(*since), limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+articleColumns+`
			FROM articles
			WHERE user_id = ?
			ORDER BY last_seen_at DESC, updated_at DESC
			LIMIT ?
		`, userID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list recent articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// CreateArticle inserts article, filling ID and timestamps. A second article
// with the same user and normalized URL yields ErrDuplicate.
func (r *articleRepository) CreateArticle(ctx context.Context, article *Article) error {
	ts := nowMillis()
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	article.URL = urlutil.NormalizeURL(article.URL)
	article.Host = urlutil.Host(article.URL)
	article.LastSeenAt = truncateMillis(article.LastSeenAt)
	article.CreatedAt = ts
	article.UpdatedAt = ts
	if article.Tags == nil {
		article.Tags = []string{}
	}

	tags, err := encodeJSON(article.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO articles (
			id, user_id, url, title, byline, excerpt, full_content, image_url,
			reading_minutes, source, tags, last_seen_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, article.ID, article.UserID, article.URL, article.Title, article.Byline, article.Excerpt,
		article.FullContent, article.ImageURL, article.ReadingMinutes, article.Source, tags,
		toNullMillis(article.LastSeenAt), toMillis(ts), toMillis(ts))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

func (r *articleRepository) UpdateArticle(ctx context.Context, article *Article) error {
	article.UpdatedAt = nowMillis()
	article.LastSeenAt = truncateMillis(article.LastSeenAt)
	if article.Tags == nil {
		article.Tags = []string{}
	}

	tags, err := encodeJSON(article.Tags)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE articles
		SET title = ?, byline = ?, excerpt = ?, full_content = ?, image_url = ?,
		    reading_minutes = ?, source = ?, tags = ?, last_seen_at = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, article.Title, article.Byline, article.Excerpt, article.FullContent, article.ImageURL,
		article.ReadingMinutes, article.Source, tags, toNullMillis(article.LastSeenAt),
		toMillis(article.UpdatedAt), article.UserID, article.ID)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	return nil
}

func (r *articleRepository) DeleteArticle(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// UpsertArticle is the idempotent insert-or-fetch write keyed by user and
// normalized URL. The returned bool reports whether a row was inserted. A
// lost insert race is resolved by re-reading the winner and applying set to it.
func (r *articleRepository) UpsertArticle(ctx context.Context, userID, url string, set, onInsert ArticlePatch) (*Article, bool, error) {
	url = urlutil.NormalizeURL(url)

	existing, err := r.GetArticleByURL(ctx, userID, url)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		updated, err := r.updateExisting(ctx, existing, set)
		return updated, false, err
	}

	article := ApplyUpdate(nil, set, onInsert)
	article.UserID = userID
	article.URL = url

	err = r.CreateArticle(ctx, &article)
	if err == nil {
		return &article, true, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return nil, false, err
	}

	existing, err = r.GetArticleByURL(ctx, userID, url)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("failed to upsert article: %s vanished after duplicate insert", url)
	}

	updated, err := r.updateExisting(ctx, existing, set)
	return updated, false, err
}

func (r *articleRepository) updateExisting(ctx context.Context, existing *Article, set ArticlePatch) (*Article, error) {
	if set.IsEmpty() {
		return existing, nil
	}

	merged := ApplyUpdate(existing, set, ArticlePatch{})
	if err := r.UpdateArticle(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func scanArticle(row scanner) (*Article, error) {
	var (
		article   Article
		tags      string
		lastSeen  sql.NullInt64
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(
		&article.ID, &article.UserID, &article.URL, &article.Title, &article.Byline,
		&article.Excerpt, &article.FullContent, &article.ImageURL, &article.ReadingMinutes,
		&article.Source, &tags, &lastSeen, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(tags, &article.Tags); err != nil {
		return nil, err
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
	article.Host = urlutil.Host(article.URL)
	article.LastSeenAt = fromNullMillis(lastSeen)
	article.CreatedAt = fromMillis(createdAt)
	article.UpdatedAt = fromMillis(updatedAt)

	return &article, nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package api

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/database"
)

// Below this many characters an article's stored text is treated as a stub
// and the page is read again before summarizing.
const minArticleText = 280

func (h *Handler) Summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	mode, err := ai.ParseMode(req.Mode)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	text := strings.TrimSpace(req.Text)
	if req.ArticleID != "" {
		article, ok := h.loadArticle(c, req.ArticleID)
		if !ok {
			return
		}
		text = h.articleText(c, article)
	}

	if text == "" {
		badRequest(c, "text or articleId is required")
		return
	}

	summary := h.summarizer.Summarize(c.Request.Context(), text, mode)
	if summary == "" {
		summary = ai.Fallback(text, mode)
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary, "mode": mode})
}

// articleText returns the article body without its headline, re-reading the
// page and storing the result when the saved text is too short.
func (h *Handler) articleText(c *gin.Context, article *database.Article) string {
	text := bodyText(article)
	if utf8.RuneCountInString(text) >= minArticleText || h.reader == nil {
		return text
	}

	parsed, err := h.reader.Fetch(c.Request.Context(), article.URL)
	if err != nil {
		slog.Debug("Article reparse failed", "url", article.URL, "error", err)
		return text
	}

	updated, _, err := h.articles.UpsertArticle(c.Request.Context(), userID(c), article.URL, parsed.Patch(), database.ArticlePatch{})
	if err != nil {
		slog.Error("Database error", "operation", "reparse_article", "user_id", userID(c), "id", article.ID, "error", err)
		return text
	}

	return bodyText(updated)
}

func bodyText(article *database.Article) string {
	raw := article.FullContent
	if strings.TrimSpace(raw) == "" {
		raw = article.Excerpt
	}
	if strings.TrimSpace(raw) == "" {
		raw = article.Title
	}

	text := ai.CleanInput(raw)
	if title := ai.CleanInput(article.Title); title != "" && text != title {
		text = ai.CleanInput(strings.ReplaceAll(text, title, " "))
	}
	return text
}

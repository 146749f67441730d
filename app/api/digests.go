package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/digest"
)

// GetDigest answers with {item: null} when no digest exists for the date.
func (h *Handler) GetDigest(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	d, err := h.digests.GetByDate(c.Request.Context(), userID(c), date)
	if err != nil {
		slog.Error("Database error", "operation", "get_digest", "user_id", userID(c), "date", date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if d == nil {
		c.JSON(http.StatusOK, gin.H{"item": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": d})
}

func (h *Handler) ListDigests(c *gin.Context) {
	limit, err := queryInt(c, "limit", 7)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	limit = min(max(limit, 1), 60)

	items, err := h.digests.List(c.Request.Context(), userID(c), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_digests", "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) GenerateDigest(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = h.now().In(time.Local).Format(time.DateOnly)
	}

	limit, err := queryInt(c, "limit", digest.DefaultLimit)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	refresh, err := queryBool(c, "refresh")
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	req := digest.Request{
		UserID:        userID(c),
		Date:          date,
		Limit:         limit,
		Refresh:       refresh,
		SummaryLength: ai.Mode(strings.ToLower(strings.TrimSpace(c.Query("length")))),
		Topics:        queryList(c, "topics"),
	}

	d, err := h.digests.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, digest.ErrInvalidRequest) {
			badRequest(c, err.Error())
			return
		}
		slog.Error("Digest generation failed", "user_id", req.UserID, "date", req.Date, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate digest"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": d})
}

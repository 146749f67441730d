package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/myjournal/backend/app/ai"
	"github.com/myjournal/backend/app/database"
)

const userIDKey = "userID"

func NewHandler(articles database.ArticleRepository, users database.UserRepository,
	digests DigestService, candidates CandidateSource, reader PageReader,
	summarizer ai.Summarizer, sessionTTL time.Duration, version string) *Handler {
	return &Handler{
		articles:   articles,
		users:      users,
		digests:    digests,
		candidates: candidates,
		reader:     reader,
		summarizer: summarizer,
		sessionTTL: sessionTTL,
		version:    version,
		now:        time.Now,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": h.now().In(time.Local).Format(time.RFC3339),
	})
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// queryBool accepts true/1 and false/0; anything else is an error.
func queryBool(c *gin.Context, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.Query(name))) {
	case "true", "1":
		return true, nil
	case "", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be true or false", name)
	}
}

func queryList(c *gin.Context, name string) []string {
	var out []string
	for _, part := range strings.Split(c.Query(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/myjournal/backend/app/database"
)

// NewServer creates the HTTP engine with every /api route registered.
func NewServer(handler *Handler, corsOrigin string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())
	r.Use(corsMiddleware(corsOrigin))

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api")

	api.GET("/health", handler.GetHealth)
	api.POST("/auth/register", handler.Register)
	api.POST("/auth/login", handler.Login)

	authed := api.Group("")
	authed.Use(authMiddleware(handler.users, handler.now))
	{
		authed.GET("/auth/me", handler.Me)
		authed.POST("/auth/logout", handler.Logout)

		authed.GET("/digests", handler.ListDigests)
		authed.POST("/digests/generate", handler.GenerateDigest)
		authed.GET("/digests/:date", handler.GetDigest)

		authed.GET("/articles", handler.ListArticles)
		authed.POST("/articles/import", handler.ImportArticle)
		authed.POST("/articles/refresh", handler.RefreshArticles)
		authed.GET("/articles/:id", handler.GetArticle)
		authed.PUT("/articles/:id", handler.UpdateArticle)
		authed.DELETE("/articles/:id", handler.DeleteArticle)

		authed.POST("/ai/summarize", handler.Summarize)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// corsMiddleware allows either any origin ("*") or a comma separated list.
func corsMiddleware(corsOrigin string) gin.HandlerFunc {
	var allowed []string
	for _, origin := range strings.Split(corsOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed = append(allowed, origin)
		}
	}
	wildcard := len(allowed) == 0 || slices.Contains(allowed, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(allowed, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware resolves a bearer session token to a user id.
func authMiddleware(users database.UserRepository, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)

		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Provide a session token in Authorization: Bearer <token>",
			})
			return
		}

		id, err := users.GetSessionUserID(c.Request.Context(), hashToken(token), now())
		if err != nil {
			slog.Error("Database error", "operation", "get_session", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid session",
				"message": "The session token is unknown or expired",
			})
			return
		}

		c.Set(userIDKey, id)
		c.Next()
	}
}

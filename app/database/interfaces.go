package database

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned when a write hits a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

type ArticleRepository interface {
	GetArticle(ctx context.Context, userID, id string) (*Article, error)
	GetArticleByURL(ctx context.Context, userID, url string) (*Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, int, error)
	ListRecentArticles(ctx context.Context, userID string, since *time.Time, limit int) ([]Article, error)

	CreateArticle(ctx context.Context, article *Article) error
	UpdateArticle(ctx context.Context, article *Article) error
	DeleteArticle(ctx context.Context, userID, id string) (bool, error)

	UpsertArticle(ctx context.Context, userID, url string, set, onInsert ArticlePatch) (*Article, bool, error)
}

type DigestRepository interface {
	GetDigest(ctx context.Context, userID, date string) (*Digest, error)
	ListDigests(ctx context.Context, userID string, limit int) ([]Digest, error)

	UpsertDigest(ctx context.Context, digest *Digest) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	CreateSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	GetSessionUserID(ctx context.Context, tokenHash string, now time.Time) (string, error)
	DeleteSession(ctx context.Context, tokenHash string) error
}

package store

import (
	"context"
	"errors"

	"github.com/instaclone/instaclone/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrSelfFollow        = errors.New("self follow")
)

// Page is a limit/skip window. Limit <= 0 means the caller's default.
type Page struct {
	Limit int
	Skip  int
}

type ArticleListOpts struct {
	Page
	// AuthorIDs restricts the listing to these authors; nil means all authors.
	AuthorIDs []int64
	// ViewerID drives the IsFavorite flag; 0 means anonymous.
	ViewerID int64
}

type ProfileListOpts struct {
	Page
	UsernamePrefix string
	ViewerID       int64
}

type Store interface {
	UserStore
	FollowStore
	ArticleStore
	FavoriteStore
	CommentStore
	GetSiteStats(ctx context.Context) (model.SiteStats, error)
	Ping(ctx context.Context) error
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateUser(ctx context.Context, user *model.User) error
	GetProfile(ctx context.Context, username string, viewerID int64) (model.Profile, error)
	ListProfiles(ctx context.Context, opts ProfileListOpts) ([]model.Profile, int, error)
}

type FollowStore interface {
	CreateFollow(ctx context.Context, followerID, followingID int64) (bool, error)
	DeleteFollow(ctx context.Context, followerID, followingID int64) (bool, error)
	ListFollowingIDs(ctx context.Context, followerID int64) ([]int64, error)
	ListFollowers(ctx context.Context, userID int64, viewerID int64, page Page) ([]model.Profile, int, error)
	ListFollowing(ctx context.Context, userID int64, viewerID int64, page Page) ([]model.Profile, int, error)
}

type ArticleStore interface {
	CreateArticle(ctx context.Context, article *model.Article) (int64, error)
	GetArticle(ctx context.Context, id int64, viewerID int64) (model.Article, error)
	ListArticles(ctx context.Context, opts ArticleListOpts) ([]model.Article, int, error)
	// DeleteArticle removes the article together with its comments and favorites.
	DeleteArticle(ctx context.Context, id int64) error
}

type FavoriteStore interface {
	// AddFavorite creates the (user, article) favorite and bumps the article's
	// counter in one transaction. It reports false when the favorite already existed.
	AddFavorite(ctx context.Context, userID, articleID int64) (bool, error)
	// RemoveFavorite is the inverse of AddFavorite.
	RemoveFavorite(ctx context.Context, userID, articleID int64) (bool, error)
	CountFavorites(ctx context.Context, articleID int64) (int, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) (int64, error)
	GetComment(ctx context.Context, id int64) (model.Comment, error)
	ListComments(ctx context.Context, articleID int64, page Page) ([]model.Comment, int, error)
	DeleteComment(ctx context.Context, id int64) error
}

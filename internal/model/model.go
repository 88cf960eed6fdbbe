package model

import "time"

const DefaultAvatar = "default.png"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	FullName     string    `json:"fullName"`
	Bio          string    `json:"bio"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary is the author view embedded in articles and comments.
func (u User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

type AuthorSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Article carries the stored document plus the read-time aggregates
// (CommentCount, IsFavorite) computed by the store's list and get queries.
type Article struct {
	ID            int64         `json:"id"`
	AuthorID      int64         `json:"-"`
	Author        AuthorSummary `json:"author"`
	Photos        []string      `json:"photos"`
	Description   string        `json:"description"`
	FavoriteCount int           `json:"favoriteCount"`
	CommentCount  int           `json:"commentCount"`
	IsFavorite    bool          `json:"isFavorite"`
	CreatedAt     time.Time     `json:"created"`
}

type Comment struct {
	ID        int64         `json:"id"`
	ArticleID int64         `json:"articleId"`
	AuthorID  int64         `json:"-"`
	Author    AuthorSummary `json:"author"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created"`
}

type Favorite struct {
	ID        int64
	UserID    int64
	ArticleID int64
	CreatedAt time.Time
}

type Follow struct {
	ID          int64
	FollowerID  int64
	FollowingID int64
	CreatedAt   time.Time
}

type Profile struct {
	ID             int64  `json:"-"`
	Username       string `json:"username"`
	FullName       string `json:"fullName"`
	Avatar         string `json:"avatar"`
	Bio            string `json:"bio"`
	IsFollowing    bool   `json:"isFollowing"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
	ArticleCount   int    `json:"articleCount"`
}

// Session is the reduced profile returned on login and profile update.
type Session struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	Token    string `json:"token"`
}

type SiteStats struct {
	Users    int64
	Articles int64
	Comments int64
}

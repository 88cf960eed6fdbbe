package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"

	_ "modernc.org/sqlite"
)

const maxPageSize = 100

type Store struct {
	db *sql.DB
}

// connParams are applied by the driver to every pooled connection.
// Immediate transactions take the write lock at BEGIN, so concurrent writers
// wait on busy_timeout instead of failing a read-to-write lock upgrade.
var connParams = url.Values{
	"_pragma": {"busy_timeout(5000)", "foreign_keys(1)", "journal_mode(wal)"},
	"_txlock": {"immediate"},
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", withConnParams(path))
	if err != nil {
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func withConnParams(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + connParams.Encode()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	salt TEXT NOT NULL,
	full_name TEXT,
	bio TEXT,
	avatar TEXT NOT NULL DEFAULT 'default.png',
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id INTEGER NOT NULL,
	photos TEXT NOT NULL,
	description TEXT,
	favorite_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(author_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_articles_author_id ON articles(author_id);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL,
	author_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(article_id) REFERENCES articles(id),
	FOREIGN KEY(author_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_comments_article_id ON comments(article_id, created_at DESC);

CREATE TABLE IF NOT EXISTS favorites (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	article_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id),
	FOREIGN KEY(article_id) REFERENCES articles(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_favorites_unique ON favorites(user_id, article_id);
CREATE INDEX IF NOT EXISTS idx_favorites_article_id ON favorites(article_id);

CREATE TABLE IF NOT EXISTS follows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	follower_id INTEGER NOT NULL,
	following_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(follower_id) REFERENCES users(id),
	FOREIGN KEY(following_id) REFERENCES users(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_follows_unique ON follows(follower_id, following_id);
CREATE INDEX IF NOT EXISTS idx_follows_following_id ON follows(following_id);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion reports the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}

// ============================================================================
// USERS
// ============================================================================

const userColumns = `id, username, email, password_hash, salt, full_name, bio, avatar, created_at`

func (s *Store) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	avatar := user.Avatar
	if avatar == "" {
		avatar = model.DefaultAvatar
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (username, email, password_hash, salt, full_name, bio, avatar, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, user.Username, user.Email, user.PasswordHash, user.Salt, nullIfEmpty(user.FullName), nullIfEmpty(user.Bio), avatar, user.CreatedAt.UnixMilli())
	if err != nil {
		return 0, userConstraintError(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`, username).Scan(&exists)
	return exists == 1, err
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	return exists == 1, err
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE users SET username = ?, email = ?, full_name = ?, bio = ?, avatar = ?
WHERE id = ?
`, user.Username, user.Email, nullIfEmpty(user.FullName), nullIfEmpty(user.Bio), user.Avatar, user.ID)
	if err != nil {
		return userConstraintError(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

const profileColumns = `u.id, u.username, u.full_name, u.bio, u.avatar,
	(SELECT COUNT(*) FROM follows WHERE following_id = u.id),
	(SELECT COUNT(*) FROM follows WHERE follower_id = u.id),
	(SELECT COUNT(*) FROM articles WHERE author_id = u.id),
	EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND following_id = u.id)`

func (s *Store) GetProfile(ctx context.Context, username string, viewerID int64) (model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+profileColumns+`
FROM users u
WHERE u.username = ?
`, viewerID, username)
	return scanProfile(row)
}

func (s *Store) ListProfiles(ctx context.Context, opts store.ProfileListOpts) ([]model.Profile, int, error) {
	limit, skip := pageBounds(opts.Page)
	pattern := escapeLike(opts.UsernamePrefix) + "%"

	var total int
	if err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM users u WHERE u.username LIKE ? ESCAPE '\'
`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+profileColumns+`
FROM users u
WHERE u.username LIKE ? ESCAPE '\'
ORDER BY u.username ASC
LIMIT ? OFFSET ?
`, opts.ViewerID, pattern, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	profiles, err := collectProfiles(rows)
	return profiles, total, err
}

// ============================================================================
// FOLLOWS
// ============================================================================

func (s *Store) CreateFollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	if followerID == followingID {
		return false, store.ErrSelfFollow
	}
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO follows (follower_id, following_id, created_at)
VALUES (?, ?, ?)
`, followerID, followingID, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = ? AND following_id = ?`, followerID, followingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *Store) ListFollowingIDs(ctx context.Context, followerID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT following_id FROM follows WHERE follower_id = ?`, followerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListFollowers(ctx context.Context, userID int64, viewerID int64, page store.Page) ([]model.Profile, int, error) {
	return s.listFollowEdge(ctx, "follower_id", "following_id", userID, viewerID, page)
}

func (s *Store) ListFollowing(ctx context.Context, userID int64, viewerID int64, page store.Page) ([]model.Profile, int, error) {
	return s.listFollowEdge(ctx, "following_id", "follower_id", userID, viewerID, page)
}

// listFollowEdge lists the users on the `join` side of follow rows whose
// `match` column equals userID. Column names are fixed by the callers above.
func (s *Store) listFollowEdge(ctx context.Context, join, match string, userID, viewerID int64, page store.Page) ([]model.Profile, int, error) {
	limit, skip := pageBounds(page)

	var total int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM follows WHERE %s = ?`, match), userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT `+profileColumns+`
FROM follows fl
JOIN users u ON u.id = fl.%s
WHERE fl.%s = ?
ORDER BY fl.created_at DESC, fl.id DESC
LIMIT ? OFFSET ?
`, join, match), viewerID, userID, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	profiles, err := collectProfiles(rows)
	return profiles, total, err
}

// ============================================================================
// ARTICLES
// ============================================================================

const articleColumns = `a.id, a.author_id, u.username, u.avatar, a.photos, a.description, a.favorite_count, a.created_at,
	(SELECT COUNT(*) FROM comments c WHERE c.article_id = a.id),
	EXISTS (SELECT 1 FROM favorites f WHERE f.article_id = a.id AND f.user_id = ?)`

func (s *Store) CreateArticle(ctx context.Context, article *model.Article) (int64, error) {
	photos, err := json.Marshal(article.Photos)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO articles (author_id, photos, description, favorite_count, created_at)
VALUES (?, ?, ?, 0, ?)
`, article.AuthorID, string(photos), nullIfEmpty(article.Description), article.CreatedAt.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetArticle(ctx context.Context, id int64, viewerID int64) (model.Article, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+articleColumns+`
FROM articles a
JOIN users u ON u.id = a.author_id
WHERE a.id = ?
`, viewerID, id)
	return scanArticle(row)
}

func (s *Store) ListArticles(ctx context.Context, opts store.ArticleListOpts) ([]model.Article, int, error) {
	limit, skip := pageBounds(opts.Page)
	where, whereArgs := authorFilter(opts.AuthorIDs)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a WHERE `+where, whereArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := make([]any, 0, len(whereArgs)+3)
	args = append(args, opts.ViewerID)
	args = append(args, whereArgs...)
	args = append(args, limit, skip)
	rows, err := s.db.QueryContext(ctx, `
SELECT `+articleColumns+`
FROM articles a
JOIN users u ON u.id = a.author_id
WHERE `+where+`
ORDER BY a.created_at DESC, a.id DESC
LIMIT ? OFFSET ?
`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	articles := make([]model.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE article_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE article_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// ============================================================================
// FAVORITES
// ============================================================================

func (s *Store) AddFavorite(ctx context.Context, userID, articleID int64) (bool, error) {
	added := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := articleExists(ctx, tx, articleID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO favorites (user_id, article_id, created_at)
VALUES (?, ?, ?)
`, userID, articleID, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE articles SET favorite_count = favorite_count + 1 WHERE id = ?`, articleID); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

func (s *Store) RemoveFavorite(ctx context.Context, userID, articleID int64) (bool, error) {
	removed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := articleExists(ctx, tx, articleID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND article_id = ?`, userID, articleID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE articles SET favorite_count = favorite_count - 1 WHERE id = ? AND favorite_count > 0`, articleID); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

func (s *Store) CountFavorites(ctx context.Context, articleID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE article_id = ?`, articleID).Scan(&count)
	return count, err
}

// ============================================================================
// COMMENTS
// ============================================================================

const commentColumns = `c.id, c.article_id, c.author_id, u.username, u.avatar, c.content, c.created_at`

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO comments (article_id, author_id, content, created_at)
VALUES (?, ?, ?, ?)
`, comment.ArticleID, comment.AuthorID, comment.Content, comment.CreatedAt.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetComment(ctx context.Context, id int64) (model.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+commentColumns+`
FROM comments c
JOIN users u ON u.id = c.author_id
WHERE c.id = ?
`, id)
	return scanComment(row)
}

func (s *Store) ListComments(ctx context.Context, articleID int64, page store.Page) ([]model.Comment, int, error) {
	limit, skip := pageBounds(page)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE article_id = ?`, articleID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+commentColumns+`
FROM comments c
JOIN users u ON u.id = c.author_id
WHERE c.article_id = ?
ORDER BY c.created_at DESC, c.id DESC
LIMIT ? OFFSET ?
`, articleID, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, limit)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetSiteStats(ctx context.Context) (model.SiteStats, error) {
	var stats model.SiteStats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)
	if err := row.Scan(&stats.Users); err != nil {
		return stats, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`)
	if err := row.Scan(&stats.Articles); err != nil {
		return stats, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`)
	if err := row.Scan(&stats.Comments); err != nil {
		return stats, err
	}
	return stats, nil
}

// ============================================================================
// HELPERS
// ============================================================================

type scanner interface{ Scan(dest ...any) error }

func scanUser(row scanner) (model.User, error) {
	var u model.User
	var fullName, bio sql.NullString
	var created int64
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt, &fullName, &bio, &u.Avatar, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.FullName = fullName.String
	u.Bio = bio.String
	u.CreatedAt = time.UnixMilli(created)
	return u, nil
}

func scanProfile(row scanner) (model.Profile, error) {
	var p model.Profile
	var fullName, bio sql.NullString
	var following int
	if err := row.Scan(&p.ID, &p.Username, &fullName, &bio, &p.Avatar, &p.FollowerCount, &p.FollowingCount, &p.ArticleCount, &following); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, store.ErrNotFound
		}
		return model.Profile{}, err
	}
	p.FullName = fullName.String
	p.Bio = bio.String
	p.IsFollowing = following == 1
	return p, nil
}

func collectProfiles(rows *sql.Rows) ([]model.Profile, error) {
	defer rows.Close()
	profiles := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanArticle(row scanner) (model.Article, error) {
	var a model.Article
	var photosRaw string
	var description sql.NullString
	var created int64
	var favorite int
	if err := row.Scan(&a.ID, &a.AuthorID, &a.Author.Username, &a.Author.Avatar, &photosRaw, &description, &a.FavoriteCount, &created, &a.CommentCount, &favorite); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Article{}, store.ErrNotFound
		}
		return model.Article{}, err
	}
	if err := json.Unmarshal([]byte(photosRaw), &a.Photos); err != nil {
		return model.Article{}, fmt.Errorf("decode photos of article %d: %w", a.ID, err)
	}
	a.Author.ID = a.AuthorID
	a.Description = description.String
	a.CreatedAt = time.UnixMilli(created)
	a.IsFavorite = favorite == 1
	return a, nil
}

func scanComment(row scanner) (model.Comment, error) {
	var c model.Comment
	var created int64
	if err := row.Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Author.Username, &c.Author.Avatar, &c.Content, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, store.ErrNotFound
		}
		return model.Comment{}, err
	}
	c.Author.ID = c.AuthorID
	c.CreatedAt = time.UnixMilli(created)
	return c, nil
}

func articleExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = ?)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func authorFilter(ids []int64) (string, []any) {
	if ids == nil {
		return "1 = 1", nil
	}
	if len(ids) == 0 {
		return "0 = 1", nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	return "a.author_id IN (" + placeholders + ")", args
}

func pageBounds(p store.Page) (limit, skip int) {
	limit = clamp(p.Limit, 1, maxPageSize)
	skip = p.Skip
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func userConstraintError(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return store.ErrDuplicateUsername
	case strings.Contains(msg, "users.email"):
		return store.ErrDuplicateEmail
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

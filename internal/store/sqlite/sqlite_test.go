package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func createUser(t *testing.T, st *Store, username string) model.User {
	t.Helper()
	u := model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Salt:         "salt",
		CreatedAt:    time.Now(),
	}
	id, err := st.CreateUser(context.Background(), &u)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	u.ID = id
	u.Avatar = model.DefaultAvatar
	return u
}

func createArticle(t *testing.T, st *Store, authorID int64, created time.Time) int64 {
	t.Helper()
	a := model.Article{
		AuthorID:  authorID,
		Photos:    []string{fmt.Sprintf("%d.png", created.UnixNano())},
		CreatedAt: created,
	}
	id, err := st.CreateArticle(context.Background(), &a)
	if err != nil {
		t.Fatalf("create article: %v", err)
	}
	return id
}

func TestMigrationsApplied(t *testing.T) {
	st := newTestStore(t)
	v, err := st.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), v)
	}
}

func TestUserUniqueness(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	createUser(t, st, "alice")

	dupName := model.User{Username: "alice", Email: "other@example.com", PasswordHash: "h", Salt: "s", CreatedAt: time.Now()}
	if _, err := st.CreateUser(ctx, &dupName); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	dupEmail := model.User{Username: "alice2", Email: "alice@example.com", PasswordHash: "h", Salt: "s", CreatedAt: time.Now()}
	if _, err := st.CreateUser(ctx, &dupEmail); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	got, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Username != "alice" || got.Avatar != model.DefaultAvatar {
		t.Fatalf("unexpected user: %+v", got)
	}
	if _, err := st.GetUserByUsername(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, st, "alice")
	createUser(t, st, "bobby")

	u.Bio = "hello"
	u.FullName = "Alice A"
	u.Avatar = "1.png"
	if err := st.UpdateUser(ctx, &u); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := st.GetUser(ctx, u.ID)
	if got.Bio != "hello" || got.FullName != "Alice A" || got.Avatar != "1.png" {
		t.Fatalf("update not applied: %+v", got)
	}

	u.Username = "bobby"
	if err := st.UpdateUser(ctx, &u); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestFavoriteCounterIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := createUser(t, st, "author")
	fan := createUser(t, st, "fanuser")
	id := createArticle(t, st, author.ID, time.Now())

	added, err := st.AddFavorite(ctx, fan.ID, id)
	if err != nil || !added {
		t.Fatalf("first favorite: added=%v err=%v", added, err)
	}
	added, err = st.AddFavorite(ctx, fan.ID, id)
	if err != nil || added {
		t.Fatalf("second favorite: added=%v err=%v", added, err)
	}

	a, err := st.GetArticle(ctx, id, fan.ID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if a.FavoriteCount != 1 || !a.IsFavorite {
		t.Fatalf("expected count 1 and favorited, got %d %v", a.FavoriteCount, a.IsFavorite)
	}
	if n, _ := st.CountFavorites(ctx, id); n != a.FavoriteCount {
		t.Fatalf("counter drift: %d favorites, counter %d", n, a.FavoriteCount)
	}

	removed, err := st.RemoveFavorite(ctx, fan.ID, id)
	if err != nil || !removed {
		t.Fatalf("unfavorite: removed=%v err=%v", removed, err)
	}
	removed, err = st.RemoveFavorite(ctx, fan.ID, id)
	if err != nil || removed {
		t.Fatalf("second unfavorite: removed=%v err=%v", removed, err)
	}
	a, _ = st.GetArticle(ctx, id, fan.ID)
	if a.FavoriteCount != 0 || a.IsFavorite {
		t.Fatalf("expected count 0, got %d %v", a.FavoriteCount, a.IsFavorite)
	}

	if _, err := st.AddFavorite(ctx, fan.ID, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing article, got %v", err)
	}
}

func TestConcurrentFavoritesOnFileDB(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "favorites.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	author := createUser(t, st, "author")
	id := createArticle(t, st, author.ID, time.Now())

	const fans = 30
	users := make([]model.User, fans)
	for i := range users {
		users[i] = createUser(t, st, fmt.Sprintf("fan%02d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, fans*2)
	for _, u := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if _, err := st.AddFavorite(ctx, userID, id); err != nil {
				errs <- err
			}
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("favorite: %v", err)
	}

	a, err := st.GetArticle(ctx, id, 0)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	n, err := st.CountFavorites(ctx, id)
	if err != nil {
		t.Fatalf("count favorites: %v", err)
	}
	if a.FavoriteCount != fans || n != fans {
		t.Fatalf("expected %d favorites, counter %d rows %d", fans, a.FavoriteCount, n)
	}

	// Half unfavorite while the other half favorite again.
	errs = make(chan error, fans)
	for i, u := range users {
		wg.Add(1)
		go func(userID int64, remove bool) {
			defer wg.Done()
			var err error
			if remove {
				_, err = st.RemoveFavorite(ctx, userID, id)
			} else {
				_, err = st.AddFavorite(ctx, userID, id)
			}
			if err != nil {
				errs <- err
			}
		}(u.ID, i%2 == 0)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("toggle favorite: %v", err)
	}

	a, _ = st.GetArticle(ctx, id, 0)
	n, _ = st.CountFavorites(ctx, id)
	if a.FavoriteCount != fans/2 || n != fans/2 {
		t.Fatalf("expected %d favorites after toggling, counter %d rows %d", fans/2, a.FavoriteCount, n)
	}
}

func TestListArticlesPagination(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, st, "author")
	base := time.Now().Add(-time.Hour)
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, createArticle(t, st, u.ID, base.Add(time.Duration(i)*time.Minute)))
	}

	first, total, err := st.ListArticles(ctx, store.ArticleListOpts{Page: store.Page{Limit: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	second, _, err := st.ListArticles(ctx, store.ArticleListOpts{Page: store.Page{Limit: 2, Skip: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	got := []int64{first[0].ID, first[1].ID, second[0].ID, second[1].ID}
	want := []int64{ids[4], ids[3], ids[2], ids[1]}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("page order mismatch at %d: got %v want %v", i, got, want)
		}
	}
	if first[0].Author.Username != "author" {
		t.Fatalf("expected author summary, got %+v", first[0].Author)
	}
}

func TestListArticlesByAuthors(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, st, "alice")
	b := createUser(t, st, "bobby")
	c := createUser(t, st, "carol")
	createArticle(t, st, a.ID, time.Now())
	createArticle(t, st, b.ID, time.Now())
	createArticle(t, st, c.ID, time.Now())

	articles, total, err := st.ListArticles(ctx, store.ArticleListOpts{AuthorIDs: []int64{a.ID, b.ID}, Page: store.Page{Limit: 10}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(articles) != 2 {
		t.Fatalf("expected 2 articles, got total=%d len=%d", total, len(articles))
	}
	for _, art := range articles {
		if art.AuthorID == c.ID {
			t.Fatalf("unexpected author %d", art.AuthorID)
		}
	}

	none, total, err := st.ListArticles(ctx, store.ArticleListOpts{AuthorIDs: []int64{}, Page: store.Page{Limit: 10}})
	if err != nil || total != 0 || len(none) != 0 {
		t.Fatalf("expected empty listing, got %d %d %v", total, len(none), err)
	}
}

func TestDeleteArticleCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, st, "author")
	id := createArticle(t, st, u.ID, time.Now())

	c := model.Comment{ArticleID: id, AuthorID: u.ID, Content: "hi", CreatedAt: time.Now()}
	if _, err := st.CreateComment(ctx, &c); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if _, err := st.AddFavorite(ctx, u.ID, id); err != nil {
		t.Fatalf("favorite: %v", err)
	}
	art, _ := st.GetArticle(ctx, id, 0)
	if art.CommentCount != 1 {
		t.Fatalf("expected comment count 1, got %d", art.CommentCount)
	}

	if err := st.DeleteArticle(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetArticle(ctx, id, 0); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, total, _ := st.ListComments(ctx, id, store.Page{Limit: 10}); total != 0 {
		t.Fatalf("expected comments removed, got %d", total)
	}
	if n, _ := st.CountFavorites(ctx, id); n != 0 {
		t.Fatalf("expected favorites removed, got %d", n)
	}
	if err := st.DeleteArticle(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, st, "author")
	id := createArticle(t, st, u.ID, time.Now())
	base := time.Now()
	for i := 0; i < 3; i++ {
		c := model.Comment{ArticleID: id, AuthorID: u.ID, Content: fmt.Sprintf("c%d", i), CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if _, err := st.CreateComment(ctx, &c); err != nil {
			t.Fatalf("create comment: %v", err)
		}
	}
	comments, total, err := st.ListComments(ctx, id, store.Page{Limit: 2})
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if total != 3 || len(comments) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(comments), total)
	}
	if comments[0].Content != "c2" || comments[1].Content != "c1" {
		t.Fatalf("unexpected order: %q %q", comments[0].Content, comments[1].Content)
	}
	if comments[0].Author.Username != "author" {
		t.Fatalf("expected author summary")
	}
}

func TestFollowGraph(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, st, "alice")
	b := createUser(t, st, "bobby")

	if _, err := st.CreateFollow(ctx, a.ID, a.ID); !errors.Is(err, store.ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}
	created, err := st.CreateFollow(ctx, a.ID, b.ID)
	if err != nil || !created {
		t.Fatalf("follow: %v %v", created, err)
	}
	created, _ = st.CreateFollow(ctx, a.ID, b.ID)
	if created {
		t.Fatalf("expected duplicate follow to be ignored")
	}

	ids, err := st.ListFollowingIDs(ctx, a.ID)
	if err != nil || len(ids) != 1 || ids[0] != b.ID {
		t.Fatalf("following ids: %v %v", ids, err)
	}

	p, err := st.GetProfile(ctx, "bobby", a.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !p.IsFollowing || p.FollowerCount != 1 || p.FollowingCount != 0 {
		t.Fatalf("unexpected profile: %+v", p)
	}

	followers, total, err := st.ListFollowers(ctx, b.ID, 0, store.Page{Limit: 10})
	if err != nil || total != 1 || followers[0].Username != "alice" {
		t.Fatalf("followers: %v %d %v", followers, total, err)
	}
	following, total, err := st.ListFollowing(ctx, a.ID, 0, store.Page{Limit: 10})
	if err != nil || total != 1 || following[0].Username != "bobby" {
		t.Fatalf("following: %v %d %v", following, total, err)
	}

	removed, err := st.DeleteFollow(ctx, a.ID, b.ID)
	if err != nil || !removed {
		t.Fatalf("unfollow: %v %v", removed, err)
	}
	p, _ = st.GetProfile(ctx, "bobby", a.ID)
	if p.IsFollowing || p.FollowerCount != 0 {
		t.Fatalf("expected follow removed: %+v", p)
	}
}

func TestListProfilesPrefix(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	createUser(t, st, "alice")
	createUser(t, st, "alina")
	createUser(t, st, "bobby")

	profiles, total, err := st.ListProfiles(ctx, store.ProfileListOpts{UsernamePrefix: "ali", Page: store.Page{Limit: 10}})
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if total != 2 || profiles[0].Username != "alice" || profiles[1].Username != "alina" {
		t.Fatalf("unexpected profiles: %d %+v", total, profiles)
	}
}

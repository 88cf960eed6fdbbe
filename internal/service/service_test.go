package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/instaclone/instaclone/internal/auth"
	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"
	"github.com/instaclone/instaclone/internal/store/sqlite"
	"github.com/instaclone/instaclone/internal/upload"
)

type fixture struct {
	svc   *Service
	store *sqlite.Store
	auth  *auth.Service
	files upload.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	disk, err := upload.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("disk storage: %v", err)
	}
	authSvc := auth.NewService(st, []byte("test-secret"), time.Hour, 1000)
	svc := New(Deps{Store: st, Auth: authSvc, Ingest: upload.NewIngest(disk, nil)})
	return &fixture{svc: svc, store: st, auth: authSvc, files: disk}
}

func (f *fixture) signup(t *testing.T, username string) model.User {
	t.Helper()
	user, err := f.svc.Users.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return user
}

func photos(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range names {
		w, err := mw.CreateFormFile("photos", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}
	mw.Close()
	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["photos"]
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected service error of kind %s, got %v", kind, err)
	}
	if se.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, se.Kind, err)
	}
	return se
}

func messages(fields []FieldError) map[string][]string {
	out := map[string][]string{}
	for _, f := range fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}

func TestSignupReportsEveryViolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Users.Signup(context.Background(), SignupInput{
		Username: " ab! ",
		Email:    "not-an-email",
		Password: " abc ",
	})
	se := requireKind(t, err, KindValidation)
	got := messages(se.Fields)

	if len(got["username"]) != 2 || got["username"][0] != msgUsernameLength || got["username"][1] != msgUsernameChars {
		t.Fatalf("unexpected username messages %v", got["username"])
	}
	if len(got["email"]) != 1 || got["email"][0] != msgEmailInvalid {
		t.Fatalf("unexpected email messages %v", got["email"])
	}
	if len(got["password"]) != 1 || got["password"][0] != msgPasswordLength {
		t.Fatalf("unexpected password messages %v", got["password"])
	}
	if se.Kind.Status() != 400 {
		t.Fatalf("expected 400, got %d", se.Kind.Status())
	}
}

func TestSignupRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "alice1")
	ctx := context.Background()

	_, err := f.svc.Users.Signup(ctx, SignupInput{Username: "other1", Email: "alice1@example.com", Password: "password"})
	got := messages(requireKind(t, err, KindValidation).Fields)
	if len(got) != 1 || got["email"][0] != msgEmailInUse {
		t.Fatalf("expected only email in use, got %v", got)
	}

	_, err = f.svc.Users.Signup(ctx, SignupInput{Username: "alice1", Email: "fresh@example.com", Password: "password"})
	got = messages(requireKind(t, err, KindValidation).Fields)
	if len(got) != 1 || got["username"][0] != msgUsernameInUse {
		t.Fatalf("expected only username in use, got %v", got)
	}
}

func TestSignupNeverSerializesSecrets(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "alice1")
	if user.PasswordHash == "" || user.Salt == "" {
		t.Fatalf("expected hash and salt to be set on the stored user")
	}

	data, _ := json.Marshal(map[string]any{"user": user})
	for _, leak := range []string{user.PasswordHash, user.Salt, "password"} {
		if bytes.Contains(data, []byte(leak)) {
			t.Fatalf("signup payload leaks %q: %s", leak, data)
		}
	}
}

func TestLoginFailsIdentically(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "alice1")
	ctx := context.Background()

	_, errUnknown := f.svc.Users.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password"})
	_, errWrong := f.svc.Users.Login(ctx, LoginInput{Email: "alice1@example.com", Password: "wrong-password"})

	a := requireKind(t, errUnknown, KindAuthentication)
	b := requireKind(t, errWrong, KindAuthentication)
	if a.Message != b.Message || a.Kind.Status() != 401 {
		t.Fatalf("login failures differ: %q vs %q", a.Message, b.Message)
	}

	session, err := f.svc.Users.Login(ctx, LoginInput{Email: " alice1@example.com ", Password: "password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Username != "alice1" || session.Token == "" {
		t.Fatalf("unexpected session %+v", session)
	}
	if user, err := f.auth.Authenticate(ctx, session.Token); err != nil || user.Username != "alice1" {
		t.Fatalf("token does not authenticate: %v", err)
	}
}

func TestUpdateAppliesPresentFields(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice1")
	f.signup(t, "bobby1")
	ctx := context.Background()

	taken := "bobby1"
	_, err := f.svc.Users.Update(ctx, alice, UpdateInput{Username: &taken})
	got := messages(requireKind(t, err, KindValidation).Fields)
	if got["username"][0] != msgUsernameInUse {
		t.Fatalf("expected username in use, got %v", got)
	}

	newName, bio := "alice2", "hello there"
	session, err := f.svc.Users.Update(ctx, alice, UpdateInput{
		Username: &newName,
		Bio:      &bio,
		Avatar:   photos(t, "me.png"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if session.Username != "alice2" || session.Bio != "hello there" || session.Email != alice.Email {
		t.Fatalf("unexpected session %+v", session)
	}
	if session.Avatar == model.DefaultAvatar || !strings.HasSuffix(session.Avatar, ".png") {
		t.Fatalf("expected new avatar, got %q", session.Avatar)
	}
	if user, err := f.auth.Authenticate(ctx, session.Token); err != nil || user.Username != "alice2" {
		t.Fatalf("reissued token should resolve to the new username: %v", err)
	}

	_, err = f.svc.Users.Update(ctx, alice, UpdateInput{Avatar: photos(t, "me.gif")})
	requireKind(t, err, KindFile)
}

func TestUpdateDiscardsReplacedAvatar(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice1")
	ctx := context.Background()

	first, err := f.svc.Users.Update(ctx, alice, UpdateInput{Avatar: photos(t, "one.png")})
	if err != nil {
		t.Fatalf("first avatar: %v", err)
	}
	alice, err = f.store.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}

	second, err := f.svc.Users.Update(ctx, alice, UpdateInput{Avatar: photos(t, "two.png")})
	if err != nil {
		t.Fatalf("second avatar: %v", err)
	}
	if _, err := f.files.Open(ctx, upload.CategoryProfiles, first.Avatar); !errors.Is(err, upload.ErrNotFound) {
		t.Fatalf("expected replaced avatar to be removed, got %v", err)
	}
	rc, err := f.files.Open(ctx, upload.CategoryProfiles, second.Avatar)
	if err != nil {
		t.Fatalf("current avatar missing: %v", err)
	}
	rc.Close()

	alice, _ = f.store.GetUser(ctx, alice.ID)
	bio := "no new photo"
	if _, err := f.svc.Users.Update(ctx, alice, UpdateInput{Bio: &bio}); err != nil {
		t.Fatalf("bio update: %v", err)
	}
	if rc, err := f.files.Open(ctx, upload.CategoryProfiles, second.Avatar); err != nil {
		t.Fatalf("avatar removed by an update without a new one: %v", err)
	} else {
		rc.Close()
	}
}

func TestArticleLifecycle(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice1")
	bob := f.signup(t, "bobby1")
	ctx := context.Background()

	_, err := f.svc.Articles.Create(ctx, alice, "empty", nil)
	requireKind(t, err, KindFile)
	_, err = f.svc.Articles.Create(ctx, alice, "gif", photos(t, "a.gif"))
	requireKind(t, err, KindFile)

	article, err := f.svc.Articles.Create(ctx, alice, " sunset ", photos(t, "a.png"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if article.Description != "sunset" || len(article.Photos) != 1 || article.Author.Username != "alice1" {
		t.Fatalf("unexpected article %+v", article)
	}

	for i := 0; i < 2; i++ {
		got, err := f.svc.Articles.Favorite(ctx, bob, article.ID)
		if err != nil {
			t.Fatalf("favorite: %v", err)
		}
		if got.FavoriteCount != 1 || !got.IsFavorite {
			t.Fatalf("favorite #%d: count=%d isFavorite=%v", i+1, got.FavoriteCount, got.IsFavorite)
		}
	}
	for i := 0; i < 2; i++ {
		got, err := f.svc.Articles.Unfavorite(ctx, bob, article.ID)
		if err != nil {
			t.Fatalf("unfavorite: %v", err)
		}
		if got.FavoriteCount != 0 || got.IsFavorite {
			t.Fatalf("unfavorite #%d: count=%d", i+1, got.FavoriteCount)
		}
	}
	_, err = f.svc.Articles.Favorite(ctx, bob, article.ID+100)
	requireKind(t, err, KindNotFound)

	_, err = f.svc.Articles.Delete(ctx, bob, article.ID)
	requireKind(t, err, KindAuthorization)
	if _, err := f.svc.Articles.Get(ctx, article.ID, 0); err != nil {
		t.Fatalf("article should survive a foreign delete: %v", err)
	}

	removed, err := f.svc.Articles.Delete(ctx, alice, article.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.ID != article.ID {
		t.Fatalf("expected removed article, got %+v", removed)
	}
	_, err = f.svc.Articles.Get(ctx, article.ID, 0)
	requireKind(t, err, KindNotFound)
	_, err = f.svc.Articles.Delete(ctx, alice, article.ID)
	requireKind(t, err, KindNotFound)
}

func TestFindAndFeed(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice1")
	bob := f.signup(t, "bobby1")
	carol := f.signup(t, "carol1")
	ctx := context.Background()

	for _, u := range []model.User{alice, bob, carol} {
		if _, err := f.svc.Articles.Create(ctx, u, u.Username, photos(t, "p.png")); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := f.svc.Profiles.Follow(ctx, alice, "bobby1"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	feed, total, err := f.svc.Articles.Feed(ctx, alice, store.Page{})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if total != 2 || len(feed) != 2 {
		t.Fatalf("expected alice and bob articles, got %d/%d", len(feed), total)
	}
	for _, a := range feed {
		if a.Author.Username == "carol1" {
			t.Fatalf("feed leaked an unfollowed author")
		}
	}

	all, total, err := f.svc.Articles.Find(ctx, 0, FindArticlesInput{})
	if err != nil || total != 3 || len(all) != 3 {
		t.Fatalf("find all: %d/%d %v", len(all), total, err)
	}
	if all[0].Author.Username != "carol1" {
		t.Fatalf("expected newest first, got %s", all[0].Author.Username)
	}

	mine, total, err := f.svc.Articles.Find(ctx, 0, FindArticlesInput{Username: "bobby1"})
	if err != nil || total != 1 || mine[0].Author.Username != "bobby1" {
		t.Fatalf("find by username: %+v %d %v", mine, total, err)
	}

	_, _, err = f.svc.Articles.Find(ctx, 0, FindArticlesInput{Username: "ghost1"})
	requireKind(t, err, KindNotFound)
}

func TestCommentRules(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice1")
	bob := f.signup(t, "bobby1")
	ctx := context.Background()

	article, err := f.svc.Articles.Create(ctx, alice, "", photos(t, "p.png"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Comments.Create(ctx, bob, article.ID, "   ")
	requireKind(t, err, KindValidation)
	_, err = f.svc.Comments.Create(ctx, bob, article.ID+1, "hi")
	requireKind(t, err, KindNotFound)

	comment, err := f.svc.Comments.Create(ctx, bob, article.ID, "nice shot")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if comment.Author.Username != "bobby1" || comment.Content != "nice shot" {
		t.Fatalf("unexpected comment %+v", comment)
	}

	comments, total, err := f.svc.Comments.Find(ctx, article.ID, store.Page{})
	if err != nil || total != 1 || len(comments) != 1 {
		t.Fatalf("find comments: %d/%d %v", len(comments), total, err)
	}

	_, err = f.svc.Comments.Delete(ctx, alice, comment.ID)
	requireKind(t, err, KindAuthorization)
	if _, err := f.svc.Comments.Delete(ctx, bob, comment.ID); err != nil {
		t.Fatalf("delete own comment: %v", err)
	}
	_, err = f.svc.Comments.Delete(ctx, bob, comment.ID)
	requireKind(t, err, KindNotFound)
}

func TestFollowRules(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice1")
	f.signup(t, "bobby1")
	ctx := context.Background()

	_, err := f.svc.Profiles.Follow(ctx, alice, "alice1")
	requireKind(t, err, KindValidation)
	_, err = f.svc.Profiles.Follow(ctx, alice, "ghost1")
	requireKind(t, err, KindNotFound)

	for i := 0; i < 2; i++ {
		p, err := f.svc.Profiles.Follow(ctx, alice, "bobby1")
		if err != nil {
			t.Fatalf("follow: %v", err)
		}
		if !p.IsFollowing || p.FollowerCount != 1 {
			t.Fatalf("follow #%d: %+v", i+1, p)
		}
	}

	followers, total, err := f.svc.Profiles.Followers(ctx, "bobby1", 0, store.Page{})
	if err != nil || total != 1 || followers[0].Username != "alice1" {
		t.Fatalf("followers: %+v %d %v", followers, total, err)
	}

	p, err := f.svc.Profiles.Unfollow(ctx, alice, "bobby1")
	if err != nil || p.IsFollowing || p.FollowerCount != 0 {
		t.Fatalf("unfollow: %+v %v", p, err)
	}
}

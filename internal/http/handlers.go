package httpapp

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/service"
	"github.com/instaclone/instaclone/internal/upload"
)

// handleHealth godoc
//
//	@Summary	Liveness check
//	@Tags		Operations
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if err := s.store.Ping(r.Context()); err != nil {
		return err
	}
	stats, err := s.store.GetSiteStats(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"users":    stats.Users,
		"articles": stats.Articles,
		"comments": stats.Comments,
	})
	return nil
}

// ============================================================================
// USERS
// ============================================================================

// handleSignup godoc
//
//	@Summary		Sign up
//	@Description	Create an account. All failing fields are reported together.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			body	body		service.SignupInput	true	"Account"
//	@Success		200		{object}	map[string]model.User
//	@Failure		400		{object}	errorBody	"Validation failed"
//	@Failure		429		{object}	map[string]any	"Rate limited"
//	@Router			/api/users [post]
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) error {
	if err := s.allowRateLimit(r, "signup", s.limits.SignupPerMinute); err != nil {
		return err
	}
	var in service.SignupInput
	if err := readJSON(r.Body, &in); err != nil {
		return err
	}
	user, err := s.svc.Users.Signup(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
	return nil
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchange email and password for a bearer token.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			body	body		service.LoginInput	true	"Credentials"
//	@Success		200		{object}	map[string]model.Session
//	@Failure		401		{object}	errorBody	"Invalid email or password"
//	@Router			/api/users/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	if err := s.allowRateLimit(r, "login", s.limits.LoginPerMinute); err != nil {
		return err
	}
	var in service.LoginInput
	if err := readJSON(r.Body, &in); err != nil {
		return err
	}
	session, err := s.svc.Users.Login(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": session})
	return nil
}

// handleMe godoc
//
//	@Summary	Current user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]model.Profile
//	@Failure	401	{object}	errorBody
//	@Router		/api/users/me [get]
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	caller, _ := currentUser(r)
	profile, err := s.svc.Users.Me(r.Context(), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
	return nil
}

type updateMeRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
	Bio      *string `json:"bio"`
}

// handleUpdateMe godoc
//
//	@Summary		Update profile
//	@Description	Multipart form with an optional "avatar" image and optional text fields, or a JSON body with the text fields. Returns a fresh token.
//	@Tags			Users
//	@Accept			mpfd,json
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]model.Session
//	@Failure		400	{object}	errorBody
//	@Failure		401	{object}	errorBody
//	@Router			/api/users/me [put]
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) error {
	caller, _ := currentUser(r)

	var in service.UpdateInput
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			return err
		}
		defer r.MultipartForm.RemoveAll()
		form := r.MultipartForm
		field := func(name string) *string {
			if v, ok := form.Value[name]; ok && len(v) > 0 {
				return &v[0]
			}
			return nil
		}
		in = service.UpdateInput{
			Username: field("username"),
			Email:    field("email"),
			FullName: field("fullName"),
			Bio:      field("bio"),
			Avatar:   form.File["avatar"],
		}
	} else {
		var req updateMeRequest
		// An empty body is an update with no fields.
		if err := readJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		in = service.UpdateInput{Username: req.Username, Email: req.Email, FullName: req.FullName, Bio: req.Bio}
	}

	session, err := s.svc.Users.Update(r.Context(), caller, in)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": session})
	return nil
}

// ============================================================================
// PROFILES
// ============================================================================

// handleSearchProfiles godoc
//
//	@Summary	Search profiles
//	@Tags		Profiles
//	@Produce	json
//	@Param		username	query		string	false	"Username prefix"
//	@Param		limit		query		int		false	"Page size"
//	@Param		skip		query		int		false	"Offset"
//	@Success	200			{object}	map[string]any
//	@Router		/api/profiles [get]
func (s *Server) handleSearchProfiles(w http.ResponseWriter, r *http.Request) error {
	page, err := pageFrom(r)
	if err != nil {
		return err
	}
	profiles, total, err := s.svc.Profiles.Search(r.Context(), r.URL.Query().Get("username"), viewerID(r), page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "profileCount": total})
	return nil
}

// handleGetProfile godoc
//
//	@Summary	Get a profile
//	@Tags		Profiles
//	@Produce	json
//	@Param		username	path		string	true	"Username"
//	@Success	200			{object}	map[string]model.Profile
//	@Failure	404			{object}	errorBody
//	@Router		/api/profiles/{username} [get]
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) error {
	profile, err := s.svc.Profiles.Get(r.Context(), mux.Vars(r)["username"], viewerID(r))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
	return nil
}

// handleFollow godoc
//
//	@Summary	Follow a user
//	@Tags		Profiles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		username	path		string	true	"Username"
//	@Success	200			{object}	map[string]model.Profile
//	@Failure	400			{object}	errorBody	"Cannot follow yourself"
//	@Failure	404			{object}	errorBody
//	@Router		/api/profiles/{username}/follow [post]
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) error {
	caller, _ := currentUser(r)
	profile, err := s.svc.Profiles.Follow(r.Context(), caller, mux.Vars(r)["username"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
	return nil
}

// handleUnfollow godoc
//
//	@Summary	Unfollow a user
//	@Tags		Profiles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		username	path		string	true	"Username"
//	@Success	200			{object}	map[string]model.Profile
//	@Failure	404			{object}	errorBody
//	@Router		/api/profiles/{username}/follow [delete]
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) error {
	caller, _ := currentUser(r)
	profile, err := s.svc.Profiles.Unfollow(r.Context(), caller, mux.Vars(r)["username"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
	return nil
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) error {
	page, err := pageFrom(r)
	if err != nil {
		return err
	}
	profiles, total, err := s.svc.Profiles.Followers(r.Context(), mux.Vars(r)["username"], viewerID(r), page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "profileCount": total})
	return nil
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) error {
	page, err := pageFrom(r)
	if err != nil {
		return err
	}
	profiles, total, err := s.svc.Profiles.Following(r.Context(), mux.Vars(r)["username"], viewerID(r), page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "profileCount": total})
	return nil
}

// ============================================================================
// ARTICLES
// ============================================================================

// handleListArticles godoc
//
//	@Summary	List articles
//	@Tags		Articles
//	@Produce	json
//	@Param		username	query		string	false	"Author username"
//	@Param		limit		query		int		false	"Page size (default 9)"
//	@Param		skip		query		int		false	"Offset"
//	@Success	200			{object}	map[string]any
//	@Failure	404			{object}	errorBody	"Unknown username"
//	@Router		/api/articles [get]
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) error {
	page, err := pageFrom(r)
	if err != nil {
		return err
	}
	articles, total, err := s.svc.Articles.Find(r.Context(), viewerID(r), service.FindArticlesInput{
		Username: r.URL.Query().Get("username"),
		Page:     page,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles, "articleCount": total})
	return nil
}

// handleFeed godoc
//
//	@Summary	Feed
//	@Description	Articles by the caller and the users the caller follows.
//	@Tags		Articles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		limit	query		int	false	"Page size (default 5)"
//	@Param		skip	query		int	false	"Offset"
//	@Success	200		{object}	map[string]any
//	@Router		/api/articles/feed [get]
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) error {
	caller, _ := currentUser(r)
	page, err := pageFrom(r)
	if err != nil {
		return err
	}
	articles, total, err := s.svc.Articles.Feed(r.Context(), caller, page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles, "articleCount": total})
	return nil
}

// handleGetArticle godoc
//
//	@Summary	Get an article
//	@Tags		Articles
//	@Produce	json
//	@Param		id	path		int	true	"Article ID"
//	@Success	200	{object}	map[string]model.Article
//	@Failure	404	{object}	errorBody
//	@Router		/api/articles/{id} [get]
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	article, err := s.svc.Articles.Get(r.Context(), id, viewerID(r))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
	return nil
}

// handleCreateArticle godoc
//
//	@Summary		Create an article
//	@Description	Multipart form: one to ten "photos" (.jpg, .jpeg, .png, 10 MB total) and an optional "description".
//	@Tags			Articles
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]model.Article
//	@Failure		400	{object}	errorBody	"Rejected upload"
//	@Failure		401	{object}	errorBody
//	@Router			/api/articles [post]
func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) error {
	if err := s.allowRateLimit(r, "article", s.limits.ArticlePerMinute); err != nil {
		return err
	}
	if !isMultipart(r) {
		return service.FileRejected(upload.ErrNoFiles)
	}
	if err := parseMultipart(w, r); err != nil {
		return err
	}
	defer r.MultipartForm.RemoveAll()

	caller, _ := currentUser(r)
	article, err := s.svc.Articles.Create(r.Context(), caller, r.FormValue("description"), r.MultipartForm.File["photos"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
	return nil
}

// handleDeleteArticle godoc
//
//	@Summary	Delete an article
//	@Tags		Articles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Article ID"
//	@Success	200	{object}	map[string]model.Article
//	@Failure	400	{object}	errorBody	"Not the author"
//	@Failure	404	{object}	errorBody
//	@Router		/api/articles/{id} [delete]
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	caller, _ := currentUser(r)
	article, err := s.svc.Articles.Delete(r.Context(), caller, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
	return nil
}

// handleFavorite godoc
//
//	@Summary	Favorite an article
//	@Tags		Articles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Article ID"
//	@Success	200	{object}	map[string]model.Article
//	@Failure	404	{object}	errorBody
//	@Router		/api/articles/{id}/favorite [post]
func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	caller, _ := currentUser(r)
	article, err := s.svc.Articles.Favorite(r.Context(), caller, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
	return nil
}

// handleUnfavorite godoc
//
//	@Summary	Unfavorite an article
//	@Tags		Articles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Article ID"
//	@Success	200	{object}	map[string]model.Article
//	@Failure	404	{object}	errorBody
//	@Router		/api/articles/{id}/favorite [delete]
func (s *Server) handleUnfavorite(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	caller, _ := currentUser(r)
	article, err := s.svc.Articles.Unfavorite(r.Context(), caller, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
	return nil
}

// ============================================================================
// COMMENTS
// ============================================================================

// handleListComments godoc
//
//	@Summary	List comments
//	@Tags		Comments
//	@Produce	json
//	@Param		id		path		int	true	"Article ID"
//	@Param		limit	query		int	false	"Page size (default 10)"
//	@Param		skip	query		int	false	"Offset"
//	@Success	200		{object}	map[string]any
//	@Failure	404		{object}	errorBody
//	@Router		/api/articles/{id}/comments [get]
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	page, err := pageFrom(r)
	if err != nil {
		return err
	}
	comments, total, err := s.svc.Comments.Find(r.Context(), id, page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments, "commentCount": total})
	return nil
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// handleCreateComment godoc
//
//	@Summary	Comment on an article
//	@Tags		Comments
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int						true	"Article ID"
//	@Param		body	body		createCommentRequest	true	"Comment"
//	@Success	200		{object}	map[string]model.Comment
//	@Failure	400		{object}	errorBody
//	@Failure	404		{object}	errorBody
//	@Router		/api/articles/{id}/comments [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) error {
	if err := s.allowRateLimit(r, "comment", s.limits.CommentPerMinute); err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req createCommentRequest
	if err := readJSON(r.Body, &req); err != nil {
		return err
	}
	caller, _ := currentUser(r)
	comment, err := s.svc.Comments.Create(r.Context(), caller, id, req.Content)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
	return nil
}

// handleDeleteComment godoc
//
//	@Summary	Delete a comment
//	@Tags		Comments
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Comment ID"
//	@Success	200	{object}	map[string]model.Comment
//	@Failure	400	{object}	errorBody	"Not the author"
//	@Failure	404	{object}	errorBody
//	@Router		/api/comments/{id} [delete]
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	caller, _ := currentUser(r)
	comment, err := s.svc.Comments.Delete(r.Context(), caller, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
	return nil
}

// ============================================================================
// FILES
// ============================================================================

// handleFile serves a stored upload by category and generated name.
// profiles/default.png resolves to the bundled default avatar.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	category, name := vars["category"], vars["name"]

	var (
		f   io.ReadSeekCloser
		err error
	)
	if category == upload.CategoryProfiles && name == model.DefaultAvatar {
		f, err = openAsset(name)
	} else {
		f, err = s.files.Open(r.Context(), category, name)
	}
	if err != nil {
		s.wrap(func(http.ResponseWriter, *http.Request) error {
			if errors.Is(err, upload.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
				return service.NotFound("File not found")
			}
			return err
		})(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, time.Time{}, f)
}

// handleStatic godoc
//
//	@Summary	Bundled static asset
//	@Tags		Files
//	@Produce	octet-stream
//	@Param		name	path	string	true	"Asset name"
//	@Success	200
//	@Failure	404	{object}	errorBody
//	@Router		/api/static/{name} [get]
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) error {
	name := mux.Vars(r)["name"]
	f, err := openAsset(name)
	if err != nil {
		return service.NotFound("File not found")
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, name, time.Time{}, f)
	return nil
}

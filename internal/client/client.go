// Package client provides a Go client for the Instaclone API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is an Instaclone API client. Token is sent as a bearer token when set.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// New creates a new Instaclone client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Op      string
	Status  int
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, e.Message)
}

// StatusOf returns the HTTP status of an *APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Author struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type User struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
	Bio      string    `json:"bio"`
	Avatar   string    `json:"avatar"`
	Created  time.Time `json:"createdAt"`
}

type Session struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	Token    string `json:"token"`
}

type Profile struct {
	Username       string `json:"username"`
	FullName       string `json:"fullName"`
	Avatar         string `json:"avatar"`
	Bio            string `json:"bio"`
	IsFollowing    bool   `json:"isFollowing"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
	ArticleCount   int    `json:"articleCount"`
}

type Article struct {
	ID            int64     `json:"id"`
	Author        Author    `json:"author"`
	Photos        []string  `json:"photos"`
	Description   string    `json:"description"`
	FavoriteCount int       `json:"favoriteCount"`
	CommentCount  int       `json:"commentCount"`
	IsFavorite    bool      `json:"isFavorite"`
	Created       time.Time `json:"created"`
}

type Comment struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Created   time.Time `json:"created"`
}

type ArticleList struct {
	Articles     []Article `json:"articles"`
	ArticleCount int       `json:"articleCount"`
}

type CommentList struct {
	Comments     []Comment `json:"comments"`
	CommentCount int       `json:"commentCount"`
}

// Upload is an in-memory file for multipart requests.
type Upload struct {
	Name string
	Data []byte
}

// Signup creates an account. It does not log in.
func (c *Client) Signup(username, email, password, fullName string) (*User, error) {
	var result struct {
		User User `json:"user"`
	}
	body := map[string]string{"username": username, "email": email, "password": password, "fullName": fullName}
	if err := c.call("signup", http.MethodPost, "/api/users", body, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// Login stores the returned token on the client.
func (c *Client) Login(email, password string) (*Session, error) {
	var result struct {
		User Session `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.call("login", http.MethodPost, "/api/users/login", body, &result); err != nil {
		return nil, err
	}
	c.Token = result.User.Token
	return &result.User, nil
}

func (c *Client) Me() (*Profile, error) {
	var result struct {
		Profile Profile `json:"profile"`
	}
	if err := c.call("get me", http.MethodGet, "/api/users/me", nil, &result); err != nil {
		return nil, err
	}
	return &result.Profile, nil
}

// UpdateProfile sends the given text fields and an optional avatar. The
// reissued token replaces the client's token.
func (c *Client) UpdateProfile(fields map[string]string, avatar *Upload) (*Session, error) {
	var files map[string][]Upload
	if avatar != nil {
		files = map[string][]Upload{"avatar": {*avatar}}
	}
	var result struct {
		User Session `json:"user"`
	}
	if err := c.callMultipart("update profile", http.MethodPut, "/api/users/me", fields, files, &result); err != nil {
		return nil, err
	}
	c.Token = result.User.Token
	return &result.User, nil
}

func (c *Client) GetProfile(username string) (*Profile, error) {
	return c.profileCall("get profile", http.MethodGet, "/api/profiles/"+url.PathEscape(username))
}

func (c *Client) Follow(username string) (*Profile, error) {
	return c.profileCall("follow", http.MethodPost, "/api/profiles/"+url.PathEscape(username)+"/follow")
}

func (c *Client) Unfollow(username string) (*Profile, error) {
	return c.profileCall("unfollow", http.MethodDelete, "/api/profiles/"+url.PathEscape(username)+"/follow")
}

func (c *Client) profileCall(op, method, path string) (*Profile, error) {
	var result struct {
		Profile Profile `json:"profile"`
	}
	if err := c.call(op, method, path, nil, &result); err != nil {
		return nil, err
	}
	return &result.Profile, nil
}

// ListArticles lists articles, optionally by one author. limit 0 uses the server default.
func (c *Client) ListArticles(username string, limit, skip int) (*ArticleList, error) {
	q := pageQuery(limit, skip)
	if username != "" {
		q.Set("username", username)
	}
	var result ArticleList
	if err := c.call("list articles", http.MethodGet, "/api/articles?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Feed(limit, skip int) (*ArticleList, error) {
	var result ArticleList
	if err := c.call("feed", http.MethodGet, "/api/articles/feed?"+pageQuery(limit, skip).Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetArticle(id int64) (*Article, error) {
	return c.articleCall("get article", http.MethodGet, fmt.Sprintf("/api/articles/%d", id))
}

func (c *Client) CreateArticle(description string, photos ...Upload) (*Article, error) {
	var result struct {
		Article Article `json:"article"`
	}
	fields := map[string]string{"description": description}
	if err := c.callMultipart("create article", http.MethodPost, "/api/articles", fields, map[string][]Upload{"photos": photos}, &result); err != nil {
		return nil, err
	}
	return &result.Article, nil
}

func (c *Client) DeleteArticle(id int64) (*Article, error) {
	return c.articleCall("delete article", http.MethodDelete, fmt.Sprintf("/api/articles/%d", id))
}

func (c *Client) Favorite(id int64) (*Article, error) {
	return c.articleCall("favorite", http.MethodPost, fmt.Sprintf("/api/articles/%d/favorite", id))
}

func (c *Client) Unfavorite(id int64) (*Article, error) {
	return c.articleCall("unfavorite", http.MethodDelete, fmt.Sprintf("/api/articles/%d/favorite", id))
}

func (c *Client) articleCall(op, method, path string) (*Article, error) {
	var result struct {
		Article Article `json:"article"`
	}
	if err := c.call(op, method, path, nil, &result); err != nil {
		return nil, err
	}
	return &result.Article, nil
}

func (c *Client) ListComments(articleID int64, limit, skip int) (*CommentList, error) {
	var result CommentList
	path := fmt.Sprintf("/api/articles/%d/comments?%s", articleID, pageQuery(limit, skip).Encode())
	if err := c.call("list comments", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CreateComment(articleID int64, content string) (*Comment, error) {
	var result struct {
		Comment Comment `json:"comment"`
	}
	path := fmt.Sprintf("/api/articles/%d/comments", articleID)
	if err := c.call("create comment", http.MethodPost, path, map[string]string{"content": content}, &result); err != nil {
		return nil, err
	}
	return &result.Comment, nil
}

func (c *Client) DeleteComment(id int64) (*Comment, error) {
	var result struct {
		Comment Comment `json:"comment"`
	}
	if err := c.call("delete comment", http.MethodDelete, fmt.Sprintf("/api/comments/%d", id), nil, &result); err != nil {
		return nil, err
	}
	return &result.Comment, nil
}

// FetchFile downloads a stored upload through the static file route.
func (c *Client) FetchFile(category, name string) ([]byte, error) {
	resp, err := c.doRequest(http.MethodGet, "/api/files/"+url.PathEscape(category)+"/"+url.PathEscape(name), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError("fetch file", resp)
	}
	return io.ReadAll(resp.Body)
}

// call sends a JSON request and decodes a 200 response into out.
func (c *Client) call(op, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	resp, err := c.doRequest(method, path, reader, contentType)
	if err != nil {
		return err
	}
	return decodeResponse(op, resp, out)
}

func (c *Client) callMultipart(op, method, path string, fields map[string]string, files map[string][]Upload, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for field, uploads := range files {
		for _, f := range uploads {
			w, err := mw.CreateFormFile(field, f.Name)
			if err != nil {
				return err
			}
			if _, err := w.Write(f.Data); err != nil {
				return err
			}
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	resp, err := c.doRequest(method, path, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	return decodeResponse(op, resp, out)
}

// doRequest performs an HTTP request, authenticated when a token is set.
func (c *Client) doRequest(method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

func decodeResponse(op string, resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(op, resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Op: op, Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	return apiErr
}

func pageQuery(limit, skip int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	return q
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

// NewTestHelper creates a new test helper for the given base URL.
func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient signs up username with a derived email and
// password and returns a logged-in client.
func (h *TestHelper) CreateAuthenticatedClient(username string) (*Client, error) {
	c := New(h.BaseURL)
	email := username + "@example.com"
	if _, err := c.Signup(username, email, "password", ""); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	if _, err := c.Login(email, "password"); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

// GetToken signs up and returns just the bearer token.
func (h *TestHelper) GetToken(username string) (string, error) {
	c, err := h.CreateAuthenticatedClient(username)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}

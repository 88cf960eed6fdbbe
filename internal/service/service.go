// Package service holds the resource controllers. Each operation runs
// validate, authorize and execute in that order and returns either a result
// or an error; client mistakes are always *Error.
package service

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/instaclone/instaclone/internal/auth"
	"github.com/instaclone/instaclone/internal/store"
	"github.com/instaclone/instaclone/internal/upload"
)

const (
	DefaultArticleLimit = 9
	DefaultFeedLimit    = 5
	DefaultCommentLimit = 10
	DefaultProfileLimit = 20
)

type Deps struct {
	Store  store.Store
	Auth   *auth.Service
	Ingest *upload.Ingest
	Log    logrus.FieldLogger
}

type Service struct {
	Users    *UserService
	Articles *ArticleService
	Comments *CommentService
	Profiles *ProfileService
}

func New(deps Deps) *Service {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	b := base{
		store:  deps.Store,
		auth:   deps.Auth,
		ingest: deps.Ingest,
		log:    deps.Log,
		v:      validator.New(),
		now:    time.Now,
	}
	return &Service{
		Users:    &UserService{base: b},
		Articles: &ArticleService{base: b},
		Comments: &CommentService{base: b},
		Profiles: &ProfileService{base: b},
	}
}

type base struct {
	store  store.Store
	auth   *auth.Service
	ingest *upload.Ingest
	log    logrus.FieldLogger
	v      *validator.Validate
	now    func() time.Time
}

func withDefault(p store.Page, limit int) store.Page {
	if p.Limit <= 0 {
		p.Limit = limit
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	return p
}

package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/instaclone/instaclone/internal/metrics"
	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"
	"github.com/instaclone/instaclone/internal/upload"
)

type ArticleService struct {
	base
}

type FindArticlesInput struct {
	// Username restricts the listing to one author when set.
	Username string
	Page     store.Page
}

// Find lists articles newest first. viewerID 0 is an anonymous caller.
func (s *ArticleService) Find(ctx context.Context, viewerID int64, in FindArticlesInput) ([]model.Article, int, error) {
	opts := store.ArticleListOpts{
		Page:     withDefault(in.Page, DefaultArticleLimit),
		ViewerID: viewerID,
	}
	if username := strings.TrimSpace(in.Username); username != "" {
		author, err := s.store.GetUserByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, 0, NotFound("User not found")
			}
			return nil, 0, err
		}
		opts.AuthorIDs = []int64{author.ID}
	}
	return s.store.ListArticles(ctx, opts)
}

// Feed lists articles by the caller and everyone the caller follows.
func (s *ArticleService) Feed(ctx context.Context, caller model.User, page store.Page) ([]model.Article, int, error) {
	following, err := s.store.ListFollowingIDs(ctx, caller.ID)
	if err != nil {
		return nil, 0, err
	}
	authors := append([]int64{caller.ID}, following...)
	return s.store.ListArticles(ctx, store.ArticleListOpts{
		Page:      withDefault(page, DefaultFeedLimit),
		AuthorIDs: authors,
		ViewerID:  caller.ID,
	})
}

func (s *ArticleService) Get(ctx context.Context, id, viewerID int64) (model.Article, error) {
	article, err := s.store.GetArticle(ctx, id, viewerID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Article{}, NotFound("Article not found")
	}
	return article, err
}

// Create stores the photos first and then the record; if the record cannot
// be saved the photos are removed again.
func (s *ArticleService) Create(ctx context.Context, caller model.User, description string, photos []*multipart.FileHeader) (model.Article, error) {
	if len(photos) == 0 {
		return model.Article{}, FileRejected(upload.ErrNoFiles)
	}
	names, err := s.ingest.Store(ctx, upload.CategoryArticles, photos)
	if err != nil {
		return model.Article{}, uploadError(err)
	}

	article := model.Article{
		AuthorID:    caller.ID,
		Author:      caller.Summary(),
		Photos:      names,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now(),
	}
	id, err := s.store.CreateArticle(ctx, &article)
	if err != nil {
		s.ingest.Discard(ctx, upload.CategoryArticles, names)
		return model.Article{}, err
	}
	article.ID = id

	metrics.ArticlesPosted.Inc()
	s.log.WithFields(logrus.Fields{"article": id, "author": caller.Username, "photos": len(names)}).Info("article created")
	return article, nil
}

// Delete removes the caller's own article and returns it as it was.
func (s *ArticleService) Delete(ctx context.Context, caller model.User, id int64) (model.Article, error) {
	article, err := s.Get(ctx, id, caller.ID)
	if err != nil {
		return model.Article{}, err
	}
	if article.AuthorID != caller.ID {
		return model.Article{}, Forbidden("Incorrect user")
	}
	if err := s.store.DeleteArticle(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Article{}, NotFound("Article not found")
		}
		return model.Article{}, err
	}
	s.ingest.Discard(ctx, upload.CategoryArticles, article.Photos)
	return article, nil
}

func (s *ArticleService) Favorite(ctx context.Context, caller model.User, id int64) (model.Article, error) {
	if _, err := s.store.AddFavorite(ctx, caller.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Article{}, NotFound("Article not found")
		}
		return model.Article{}, err
	}
	return s.Get(ctx, id, caller.ID)
}

func (s *ArticleService) Unfavorite(ctx context.Context, caller model.User, id int64) (model.Article, error) {
	if _, err := s.store.RemoveFavorite(ctx, caller.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Article{}, NotFound("Article not found")
		}
		return model.Article{}, err
	}
	return s.Get(ctx, id, caller.ID)
}

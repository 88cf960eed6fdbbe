package service

import (
	"context"
	"errors"
	"strings"

	"github.com/instaclone/instaclone/internal/metrics"
	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"
)

type CommentService struct {
	base
}

func (s *CommentService) Find(ctx context.Context, articleID int64, page store.Page) ([]model.Comment, int, error) {
	if err := s.requireArticle(ctx, articleID); err != nil {
		return nil, 0, err
	}
	return s.store.ListComments(ctx, articleID, withDefault(page, DefaultCommentLimit))
}

func (s *CommentService) Create(ctx context.Context, caller model.User, articleID int64, content string) (model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, Validation(FieldError{Field: "content", Message: msgContentMissing})
	}
	if err := s.requireArticle(ctx, articleID); err != nil {
		return model.Comment{}, err
	}

	id, err := s.store.CreateComment(ctx, &model.Comment{
		ArticleID: articleID,
		AuthorID:  caller.ID,
		Content:   content,
		CreatedAt: s.now(),
	})
	if err != nil {
		return model.Comment{}, err
	}
	metrics.CommentsPosted.Inc()
	return s.store.GetComment(ctx, id)
}

// Delete removes the caller's own comment and returns it as it was.
func (s *CommentService) Delete(ctx context.Context, caller model.User, id int64) (model.Comment, error) {
	comment, err := s.store.GetComment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Comment{}, NotFound("Comment not found")
		}
		return model.Comment{}, err
	}
	if comment.AuthorID != caller.ID {
		return model.Comment{}, Forbidden("Incorrect user")
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Comment{}, NotFound("Comment not found")
		}
		return model.Comment{}, err
	}
	return comment, nil
}

func (s *CommentService) requireArticle(ctx context.Context, id int64) error {
	if _, err := s.store.GetArticle(ctx, id, 0); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("Article not found")
		}
		return err
	}
	return nil
}

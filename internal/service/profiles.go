package service

import (
	"context"
	"errors"
	"strings"

	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"
)

type ProfileService struct {
	base
}

func (s *ProfileService) Get(ctx context.Context, username string, viewerID int64) (model.Profile, error) {
	profile, err := s.store.GetProfile(ctx, username, viewerID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Profile{}, NotFound("User not found")
	}
	return profile, err
}

// Search lists profiles whose username starts with prefix, alphabetically.
func (s *ProfileService) Search(ctx context.Context, prefix string, viewerID int64, page store.Page) ([]model.Profile, int, error) {
	return s.store.ListProfiles(ctx, store.ProfileListOpts{
		Page:           withDefault(page, DefaultProfileLimit),
		UsernamePrefix: strings.TrimSpace(prefix),
		ViewerID:       viewerID,
	})
}

// Follow is idempotent and returns the followed profile.
func (s *ProfileService) Follow(ctx context.Context, caller model.User, username string) (model.Profile, error) {
	target, err := s.Get(ctx, username, caller.ID)
	if err != nil {
		return model.Profile{}, err
	}
	if target.ID == caller.ID {
		return model.Profile{}, Validation(FieldError{Field: "username", Message: "You cannot follow yourself"})
	}
	if _, err := s.store.CreateFollow(ctx, caller.ID, target.ID); err != nil {
		return model.Profile{}, err
	}
	return s.Get(ctx, username, caller.ID)
}

// Unfollow is idempotent and returns the unfollowed profile.
func (s *ProfileService) Unfollow(ctx context.Context, caller model.User, username string) (model.Profile, error) {
	target, err := s.Get(ctx, username, caller.ID)
	if err != nil {
		return model.Profile{}, err
	}
	if _, err := s.store.DeleteFollow(ctx, caller.ID, target.ID); err != nil {
		return model.Profile{}, err
	}
	return s.Get(ctx, username, caller.ID)
}

func (s *ProfileService) Followers(ctx context.Context, username string, viewerID int64, page store.Page) ([]model.Profile, int, error) {
	target, err := s.Get(ctx, username, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListFollowers(ctx, target.ID, viewerID, withDefault(page, DefaultProfileLimit))
}

func (s *ProfileService) Following(ctx context.Context, username string, viewerID int64, page store.Page) ([]model.Profile, int, error) {
	target, err := s.Get(ctx, username, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return s.store.ListFollowing(ctx, target.ID, viewerID, withDefault(page, DefaultProfileLimit))
}

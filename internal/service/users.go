package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/instaclone/instaclone/internal/metrics"
	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"
	"github.com/instaclone/instaclone/internal/upload"
)

type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateInput applies only the non-nil fields.
type UpdateInput struct {
	Username *string
	Email    *string
	FullName *string
	Bio      *string
	Avatar   []*multipart.FileHeader
}

type UserService struct {
	base
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.FullName = strings.TrimSpace(in.FullName)

	c := newChecker(s.v)
	if c.check(in.Username, usernameRules) {
		if err := s.checkUsernameFree(ctx, c, in.Username); err != nil {
			return model.User{}, err
		}
	}
	if c.check(in.Email, emailRules) {
		if err := s.checkEmailFree(ctx, c, in.Email); err != nil {
			return model.User{}, err
		}
	}
	c.check(in.Password, passwordRules)
	if err := c.err(); err != nil {
		return model.User{}, err
	}

	hash, salt, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Salt:         salt,
		FullName:     in.FullName,
		Avatar:       model.DefaultAvatar,
		CreatedAt:    s.now(),
	}
	id, err := s.store.CreateUser(ctx, &user)
	if err != nil {
		return model.User{}, duplicateError(err)
	}
	user.ID = id

	metrics.SignupSuccess.Inc()
	s.log.WithField("username", user.Username).Info("user signed up")
	return user, nil
}

// Login answers both an unknown email and a wrong password with the same
// error, after the same amount of key derivation work.
func (s *UserService) Login(ctx context.Context, in LoginInput) (model.Session, error) {
	email := strings.TrimSpace(in.Email)
	password := strings.TrimSpace(in.Password)

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return model.Session{}, err
		}
		s.auth.BurnPasswordCheck(password)
		metrics.LoginFailure.WithLabelValues("unknown_email").Inc()
		return model.Session{}, Unauthenticated("Invalid email or password")
	}
	if !s.auth.CheckPassword(user, password) {
		metrics.LoginFailure.WithLabelValues("bad_password").Inc()
		return model.Session{}, Unauthenticated("Invalid email or password")
	}

	metrics.LoginSuccess.Inc()
	return s.session(user)
}

func (s *UserService) Update(ctx context.Context, caller model.User, in UpdateInput) (model.Session, error) {
	in.Username = trimPtr(in.Username)
	in.Email = trimPtr(in.Email)
	in.FullName = trimPtr(in.FullName)
	in.Bio = trimPtr(in.Bio)

	c := newChecker(s.v)
	if in.Username != nil && *in.Username != caller.Username {
		if c.check(*in.Username, usernameRules) {
			if err := s.checkUsernameFree(ctx, c, *in.Username); err != nil {
				return model.Session{}, err
			}
		}
	}
	if in.Email != nil && *in.Email != caller.Email {
		if c.check(*in.Email, emailRules) {
			if err := s.checkEmailFree(ctx, c, *in.Email); err != nil {
				return model.Session{}, err
			}
		}
	}
	if err := c.err(); err != nil {
		return model.Session{}, err
	}
	if len(in.Avatar) > 1 {
		return model.Session{}, &Error{Kind: KindFile, Message: "Only one avatar image can be uploaded."}
	}

	updated := caller
	if in.Username != nil {
		updated.Username = *in.Username
	}
	if in.Email != nil {
		updated.Email = *in.Email
	}
	if in.FullName != nil {
		updated.FullName = *in.FullName
	}
	if in.Bio != nil {
		updated.Bio = *in.Bio
	}

	var stored []string
	if len(in.Avatar) == 1 {
		names, err := s.ingest.Store(ctx, upload.CategoryProfiles, in.Avatar)
		if err != nil {
			return model.Session{}, uploadError(err)
		}
		stored = names
		updated.Avatar = names[0]
	}

	if err := s.store.UpdateUser(ctx, &updated); err != nil {
		s.ingest.Discard(ctx, upload.CategoryProfiles, stored)
		return model.Session{}, duplicateError(err)
	}
	if len(stored) > 0 && caller.Avatar != "" && caller.Avatar != model.DefaultAvatar {
		s.ingest.Discard(ctx, upload.CategoryProfiles, []string{caller.Avatar})
	}
	return s.session(updated)
}

// Me returns the caller's own profile view.
func (s *UserService) Me(ctx context.Context, caller model.User) (model.Profile, error) {
	profile, err := s.store.GetProfile(ctx, caller.Username, caller.ID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Profile{}, Unauthenticated("User not found")
	}
	return profile, err
}

func (s *UserService) session(user model.User) (model.Session, error) {
	token, err := s.auth.IssueToken(user)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue token: %w", err)
	}
	return model.Session{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Avatar:   user.Avatar,
		Bio:      user.Bio,
		Token:    token,
	}, nil
}

func (s *UserService) checkUsernameFree(ctx context.Context, c *checker, username string) error {
	taken, err := s.store.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		c.fail("username", msgUsernameInUse)
	}
	return nil
}

func (s *UserService) checkEmailFree(ctx context.Context, c *checker, email string) error {
	taken, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		c.fail("email", msgEmailInUse)
	}
	return nil
}

// duplicateError maps a unique-constraint race that slipped past the
// pre-insert checks onto the same validation message.
func duplicateError(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateUsername):
		return Validation(FieldError{Field: "username", Message: msgUsernameInUse})
	case errors.Is(err, store.ErrDuplicateEmail):
		return Validation(FieldError{Field: "email", Message: msgEmailInUse})
	}
	return err
}

func uploadError(err error) error {
	if errors.Is(err, upload.ErrType) || errors.Is(err, upload.ErrTooLarge) ||
		errors.Is(err, upload.ErrTooMany) || errors.Is(err, upload.ErrNoFiles) {
		return FileRejected(err)
	}
	return fmt.Errorf("store upload: %w", err)
}

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/instaclone/instaclone/internal/model"
	"github.com/instaclone/instaclone/internal/store"
)

var ErrUnknownUser = errors.New("token user not found")

// Service ties the credential hasher and the token issuer to the user store.
type Service struct {
	users  store.UserStore
	hasher *PasswordHasher
	tokens *TokenIssuer
	// dummy keeps the unknown-email login path as slow as a real check.
	dummyHash string
	dummySalt string
}

func NewService(users store.UserStore, secret []byte, tokenTTL time.Duration, iterations int) *Service {
	hasher := NewPasswordHasher(iterations)
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: NewTokenIssuer(secret, tokenTTL),
	}
	s.dummyHash, s.dummySalt, _ = hasher.Hash("not-a-real-password")
	return s
}

func (s *Service) HashPassword(password string) (hash, salt string, err error) {
	return s.hasher.Hash(password)
}

func (s *Service) CheckPassword(user model.User, password string) bool {
	return s.hasher.Verify(password, user.Salt, user.PasswordHash)
}

// BurnPasswordCheck runs a full key derivation whose result is discarded.
func (s *Service) BurnPasswordCheck(password string) {
	_ = s.hasher.Verify(password, s.dummySalt, s.dummyHash)
}

func (s *Service) IssueToken(user model.User) (string, error) {
	return s.tokens.Issue(user.Username)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, bearer string) (model.User, error) {
	username, err := s.tokens.Parse(bearer)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrUnknownUser
		}
		return model.User{}, err
	}
	return user, nil
}

// Package security keeps the signed-in user and mints the tokens the
// local gateway accepts.
package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/store"
)

var (
	ErrNotLoggedIn    = errors.New("no hay sesión iniciada")
	ErrSessionExpired = errors.New("la sesión ha expirado, inicia sesión nuevamente")
)

// Session persists the current user under store.KeyCurrentUser and keeps
// the API client's bearer token in step with it.
type Session struct {
	store  store.Store
	client *v1.EscolarClient
	logger *zap.Logger
	now    func() time.Time
}

func NewSession(s store.Store, client *v1.EscolarClient, logger *zap.Logger) *Session {
	return &Session{store: s, client: client, logger: logging.OrNop(logger), now: time.Now}
}

func (s *Session) Login(ctx context.Context, email, password string) (*common.LoginResponseDTO, error) {
	user, err := s.client.Users.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.store.Put(ctx, store.KeyCurrentUser, user); err != nil {
		return nil, fmt.Errorf("persist current user: %w", err)
	}
	s.logger.Info("signed in", zap.Int64("userId", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *Session) Logout(ctx context.Context) error {
	s.client.Transport.SetToken("")
	return s.store.Delete(ctx, store.KeyCurrentUser)
}

// Current returns the persisted user. ErrNotLoggedIn when nobody signed in.
func (s *Session) Current(ctx context.Context) (*common.LoginResponseDTO, error) {
	var user common.LoginResponseDTO
	ok, err := s.store.Get(ctx, store.KeyCurrentUser, &user)
	if err != nil {
		return nil, err
	}
	if !ok || user.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return &user, nil
}

// Restore loads the persisted user into the API client. An expired token
// is still installed so offline work goes on, but ErrSessionExpired is
// returned alongside the user.
func (s *Session) Restore(ctx context.Context) (*common.LoginResponseDTO, error) {
	user, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	s.client.Transport.SetToken(user.Token)

	exp, ok, err := TokenExpiry(user.Token)
	if err != nil {
		s.logger.Warn("current user token is not a JWT", zap.Error(err))
		return user, nil
	}
	if ok && !exp.After(s.now()) {
		return user, ErrSessionExpired
	}
	return user, nil
}

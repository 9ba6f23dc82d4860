package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type tokenRepo struct {
	s    *Store
	h    *handle
	lock bool
}

func (r *tokenRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer guard(r.s, r.lock)()

	if _, ok := r.s.users[t.UserID]; !ok {
		return fmt.Errorf("refresh token owner %s: %w", t.UserID, common.ErrorNotFound)
	}
	if _, ok := r.s.tokens[t.Token]; ok {
		return &common.ConflictError{Field: "token"}
	}

	r.s.tokens[t.Token] = *t
	r.h.record(func() { delete(r.s.tokens, t.Token) })
	return nil
}

func (r *tokenRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer guard(r.s, r.lock)()

	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *tokenRepo) Delete(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	defer guard(r.s, r.lock)()

	t, ok := r.s.tokens[token]
	if !ok {
		return false, nil
	}
	delete(r.s.tokens, token)
	r.h.record(func() { r.s.tokens[token] = t })
	return true, nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	defer guard(r.s, r.lock)()

	var removed []models.RefreshToken
	for k, t := range r.s.tokens {
		if t.Expires.Before(now) {
			removed = append(removed, t)
			delete(r.s.tokens, k)
		}
	}
	r.h.record(func() {
		for _, t := range removed {
			r.s.tokens[t.Token] = t
		}
	})
	return int64(len(removed)), nil
}

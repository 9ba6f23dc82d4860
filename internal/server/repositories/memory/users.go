package memory

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
)

type userRepo struct {
	s    *Store
	h    *handle
	lock bool
}

func (r *userRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer guard(r.s, r.lock)()

	u := *user
	u.Email = models.NormalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if _, taken := r.s.byEmail[u.Email]; taken {
		return nil, &common.ConflictError{Field: "email"}
	}
	if _, taken := r.s.users[u.ID]; taken {
		return nil, &common.ConflictError{Field: "id"}
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt

	r.s.users[u.ID] = u
	r.s.byEmail[u.Email] = u.ID
	r.h.record(func() {
		delete(r.s.users, u.ID)
		delete(r.s.byEmail, u.Email)
	})

	out := u
	return &out, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer guard(r.s, r.lock)()

	id, ok := r.s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer guard(r.s, r.lock)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer guard(r.s, r.lock)()

	old, ok := r.s.users[user.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}

	u := *user
	u.Email = models.NormalizeEmail(u.Email)
	if owner, taken := r.s.byEmail[u.Email]; taken && owner != u.ID {
		return nil, &common.ConflictError{Field: "email"}
	}
	u.CreatedAt = old.CreatedAt
	u.UpdatedAt = r.s.now()

	delete(r.s.byEmail, old.Email)
	r.s.users[u.ID] = u
	r.s.byEmail[u.Email] = u.ID
	r.h.record(func() {
		delete(r.s.byEmail, u.Email)
		r.s.users[old.ID] = old
		r.s.byEmail[old.Email] = old.ID
	})

	out := u
	return &out, nil
}

// Delete removes the user together with every refresh token they own.
func (r *userRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer guard(r.s, r.lock)()

	old, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}

	var owned []models.RefreshToken
	for k, t := range r.s.tokens {
		if t.UserID == id {
			owned = append(owned, t)
			delete(r.s.tokens, k)
		}
	}
	delete(r.s.users, id)
	delete(r.s.byEmail, old.Email)

	r.h.record(func() {
		r.s.users[old.ID] = old
		r.s.byEmail[old.Email] = old.ID
		for _, t := range owned {
			r.s.tokens[t.Token] = t
		}
	})
	return nil
}

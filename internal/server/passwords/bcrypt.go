package passwords

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt uses cost, or bcrypt.DefaultCost when cost is zero.
func NewBcrypt(cost int) *Bcrypt {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &common.ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
	}
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

func (b *Bcrypt) Verify(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

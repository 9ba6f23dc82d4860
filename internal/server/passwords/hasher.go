// Package passwords hashes and verifies user passwords. The algorithm is a
// pluggable Hasher; bcrypt and argon2id are provided.
package passwords

import (
	"errors"
	"fmt"
)

// ErrMalformedHash is returned when a stored hash cannot be decoded.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher turns plaintext passwords into self-describing hashes and checks
// candidates against them. Verify reports a mismatch as (false, nil); an
// error means the stored hash itself is unusable.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) (bool, error)
}

// New returns the hasher registered under name ("bcrypt" or "argon2id").
func New(name string) (Hasher, error) {
	switch name {
	case "bcrypt":
		return NewBcrypt(0), nil
	case "argon2id":
		return NewArgon2id(DefaultArgon2idParams()), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

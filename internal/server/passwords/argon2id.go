package passwords

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// Argon2idParams are the cost parameters written into every hash.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams matches the parameters used for master key
// derivation elsewhere in the project.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   64 * 1024,
		Iterations:  1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2id produces PHC strings:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type Argon2id struct {
	p Argon2idParams
}

func NewArgon2id(p Argon2idParams) *Argon2id {
	return &Argon2id{p: p}
}

var b64 = base64.RawStdEncoding

func (a *Argon2id) Hash(password string) (string, error) {
	salt := common.GenerateRandByteArray(int(a.p.SaltLength))
	if salt == nil {
		return "", fmt.Errorf("argon2id: cannot generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, a.p.Iterations, a.p.MemoryKiB, a.p.Parallelism, a.p.KeyLength)
	defer common.WipeByteArray(key)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.p.MemoryKiB, a.p.Iterations, a.p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

func (a *Argon2id) Verify(hash, password string) (bool, error) {
	p, salt, want, err := decodeArgon2id(hash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(want)))
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decodeArgon2id(hash string) (Argon2idParams, []byte, []byte, error) {
	var p Argon2idParams

	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}

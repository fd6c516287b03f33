package auth

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes and verifies passwords
type Credentials interface {
	Hash(password string) (string, error)

	// Verify returns false if the password does not match the hash
	Verify(hash string, password string) (bool, error)
}

type bcryptCredentials struct {
	cost int
}

func (c *bcryptCredentials) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", errors.Wrap(err, "Failed to hash password")
	}
	return string(hash), nil
}

func (c *bcryptCredentials) Verify(hash string, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, errors.Wrap(err, "Failed to verify password")
}

// NewBcryptCredentials returns bcrypt based credentials. Cost out of
// bcrypt bounds falls back to bcrypt.DefaultCost
func NewBcryptCredentials(cost int) Credentials {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptCredentials{cost: cost}
}

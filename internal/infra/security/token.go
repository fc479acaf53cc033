package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrTokenRejected = errors.New("security: admin token rejected")

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(token string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(token), h.cost())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, token string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token))
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}

// AdminTokenVerifier checks bearer tokens against a single bcrypt hash.
// An empty hash rejects every token.
type AdminTokenVerifier struct {
	Hash   string
	Hasher BcryptHasher
}

func (v AdminTokenVerifier) Verify(token string) error {
	token = strings.TrimSpace(token)
	if v.Hash == "" || token == "" {
		return ErrTokenRejected
	}
	if err := v.Hasher.Compare(v.Hash, token); err != nil {
		return ErrTokenRejected
	}
	return nil
}

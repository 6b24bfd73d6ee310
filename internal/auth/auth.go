// Package auth hashes and verifies account passwords.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a password into a stored credential and checks it later.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

const (
	SHA256 = "sha256"
	Bcrypt = "bcrypt"
)

// New returns the hasher registered under name.
func New(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SHA256:
		return SHA256Hasher{}, nil
	case Bcrypt:
		return Chain{BcryptHasher{Cost: bcrypt.DefaultCost}, SHA256Hasher{}}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher: %q", name)
	}
}

// SHA256Hasher stores the unsalted lowercase hex digest, the format of the
// existing accounts file.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Verify(hash, password string) bool {
	want, _ := h.Hash(password)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) == 1
}

// BcryptHasher produces salted bcrypt hashes. Its output never contains the
// record delimiter.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (BcryptHasher) Verify(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Chain verifies against each hasher in turn and hashes with the first.
// It lets a bcrypt deployment keep accepting legacy sha256 credentials.
type Chain []Hasher

func (c Chain) Hash(password string) (string, error) {
	if len(c) == 0 {
		return "", errors.New("empty hasher chain")
	}
	return c[0].Hash(password)
}

func (c Chain) Verify(hash, password string) bool {
	for _, h := range c {
		if h.Verify(hash, password) {
			return true
		}
	}
	return false
}

// Package codegen provides short-code generation.
// Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
)

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultLength is the code length used when no explicit length is configured.
	DefaultLength = 6
)

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// alphanumericGenerator implements Generator over the 62-character
// [A-Za-z0-9] alphabet. It is safe for concurrent use.
type alphanumericGenerator struct{}

// NewAlphanumeric returns a new alphanumeric code generator.
func NewAlphanumeric() Generator {
	return &alphanumericGenerator{}
}

// Generate generates a random alphanumeric string of the specified length.
func (g *alphanumericGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}

	return string(b), nil
}

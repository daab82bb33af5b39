package ident

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// Generator produces the random tokens used as session ids and participant
// secret keys. Injected so tests can substitute deterministic values.
type Generator interface {
	SessionID() string
	SecretKey() string
}

type generator struct{}

func NewGenerator() Generator {
	return &generator{}
}

func (g *generator) SessionID() string {
	return uuid.NewString()
}

// SecretKey returns a 256-bit hex token. The key is both a capability and a
// storage address, so it must stay URL and filesystem safe.
func (g *generator) SecretKey() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}

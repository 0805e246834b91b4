package auth

import (
	"crypto/rand"
	"io"
	"math/big"
	"strconv"
	"time"
)

// DefaultCodeTTL is how long a verification code stays valid.
const DefaultCodeTTL = time.Hour

const (
	codeMin   = 100000
	codeRange = 900000 // codes fall in [100000, 999999]
)

// CodeGenerator produces 6-digit verification codes.
type CodeGenerator struct {
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

// NewCodeGenerator returns a generator whose codes expire after ttl.
func NewCodeGenerator(ttl time.Duration) *CodeGenerator {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &CodeGenerator{ttl: ttl, now: time.Now, random: rand.Reader}
}

// Generate returns a fresh code and its expiry.
func (g *CodeGenerator) Generate() (string, time.Time, error) {
	n, err := rand.Int(g.random, big.NewInt(codeRange))
	if err != nil {
		return "", time.Time{}, err
	}
	code := strconv.FormatInt(n.Int64()+codeMin, 10)
	return code, g.now().Add(g.ttl), nil
}

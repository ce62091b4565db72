// Package otp generates and compares one-time verification codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"

	"github.com/samber/oops"
)

// Length is the number of digits in a code.
const Length = 6

var upperBound = big.NewInt(1_000_000)

// Generator produces verification codes.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes uniformly from 000000-999999.
type RandomGenerator struct {
	reader io.Reader
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *RandomGenerator {
	return &RandomGenerator{reader: rand.Reader}
}

// Generate returns a zero-padded numeric code of Length digits.
func (g *RandomGenerator) Generate() (string, error) {
	reader := g.reader
	if reader == nil {
		reader = rand.Reader
	}
	n, err := rand.Int(reader, upperBound)
	if err != nil {
		return "", oops.Code("OTP_GENERATE_FAILED").Wrap(err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// Fixed always returns the same code. Used by tests and local fixtures.
type Fixed string

// Generate returns the fixed code.
func (f Fixed) Generate() (string, error) {
	return string(f), nil
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Valid reports whether code has the expected shape.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

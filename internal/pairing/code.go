package pairing

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// DefaultLength is the number of digits of a generated TV code.
	DefaultLength = 12
	groupSize     = 3
	separator     = "-"
)

// Code is a TV-style pairing code used to authorize launch requests.
// It is immutable once created.
type Code struct {
	value string
}

// New wraps a user supplied code. Separators are kept in Value but ignored everywhere else.
func New(value string) Code {
	return Code{value: value}
}

// Generate returns a random 12 digit code.
func Generate() (Code, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom draws the digits from r, which lets tests pin the code.
func GenerateFrom(r io.Reader) (Code, error) {
	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(DefaultLength)
	for i := 0; i < DefaultLength; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return Code{}, fmt.Errorf("failed to generate pairing code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return Code{value: b.String()}, nil
}

// Value returns the code as it was supplied.
func (c Code) Value() string { return c.value }

// Normalized returns only the digits of the code, in order.
func (c Code) Normalized() string {
	return Normalize(c.value)
}

// Formatted groups the digits in runs of three: "123-456-789-012".
func (c Code) Formatted() string {
	digits := c.Normalized()
	groups := make([]string, 0, (len(digits)+groupSize-1)/groupSize)
	for i := 0; i < len(digits); i += groupSize {
		end := min(i+groupSize, len(digits))
		groups = append(groups, digits[i:end])
	}
	return strings.Join(groups, separator)
}

// Matches reports whether candidate carries the same digits as the code.
// An empty candidate never matches.
func (c Code) Matches(candidate string) bool {
	if candidate == "" {
		return false
	}
	return c.Normalized() == Normalize(candidate)
}

// Normalize strips every non-digit character from s.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if ch := s[i]; ch >= '0' && ch <= '9' {
			b.WriteByte(ch)
		}
	}
	return b.String()
}

package booking

import (
	"crypto/rand"
	"io"
	"strings"
)

const (
	// CodePrefix starts every booking code.
	CodePrefix = "EVT-"
	// codeAlphabet skips I, O, 0 and 1 so codes survive being read aloud.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 5
)

// CodeGenerator produces booking codes.  The repository calls it again when
// an insert hits the unique index on booking_code.
type CodeGenerator func() (string, error)

// NewCode returns a random EVT-XXXXX code read from crypto/rand.
func NewCode() (string, error) {
	return newCodeFrom(rand.Reader)
}

func newCodeFrom(r io.Reader) (string, error) {
	buf := make([]byte, codeLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(CodePrefix) + codeLength)
	b.WriteString(CodePrefix)
	for _, v := range buf {
		// 256 is a multiple of 32, so the modulo keeps the distribution uniform.
		b.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
	}
	return b.String(), nil
}

// ValidCode reports whether s has the EVT-XXXXX shape.
func ValidCode(s string) bool {
	if len(s) != len(CodePrefix)+codeLength || !strings.HasPrefix(s, CodePrefix) {
		return false
	}
	for _, ch := range s[len(CodePrefix):] {
		if !strings.ContainsRune(codeAlphabet, ch) {
			return false
		}
	}
	return true
}

package multiplayer

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// CodeLength is the length of a room code.
const CodeLength = 6

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a random 6-character uppercase alphanumeric code.
func GenerateCode() string {
	buf := make([]byte, CodeLength)
	out := make([]byte, 0, CodeLength)
	for len(out) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			// Fallback to timestamp-based code
			return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
		}
		for _, b := range buf {
			// 252 is the largest multiple of 36 below 256; rejecting the
			// rest keeps every character equally likely.
			if b >= 252 {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out)
}

// NormalizeCode trims whitespace and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode normalizes code and checks its length and alphabet.
func ValidateCode(code string) (string, error) {
	code = NormalizeCode(code)
	if len(code) != CodeLength {
		return "", fmt.Errorf("%w: %q must be %d characters", ErrInvalidCode, code, CodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			return "", fmt.Errorf("%w: %q has invalid character %q", ErrInvalidCode, code, r)
		}
	}
	return code, nil
}

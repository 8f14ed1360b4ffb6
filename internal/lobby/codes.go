package lobby

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	// No I or O, they read as 1 and 0
	codeLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

var codePattern = regexp.MustCompile(`^[A-Z]{4}-[0-9]{4}$`)

// GenerateCode returns a code like ABCD-1234. Uniqueness is up to the caller.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(9)
	for i := 0; i < 4; i++ {
		b.WriteByte(randomChar(codeLetters))
	}
	b.WriteByte('-')
	for i := 0; i < 4; i++ {
		b.WriteByte(randomChar(codeDigits))
	}
	return b.String()
}

// NormalizeCode uppercases and trims user input
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCodeFormat reports whether code, once normalized, looks like ABCD-1234
func IsValidCodeFormat(code string) bool {
	return codePattern.MatchString(NormalizeCode(code))
}

func randomChar(chars string) byte {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return chars[n.Int64()]
}

package license

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"qajalicense/internal/config"
)

// KeyGenerator produces candidate license keys. Uniqueness against the
// store is the caller's concern.
type KeyGenerator interface {
	Generate() (string, error)
}

// RandomKeyGenerator draws XXXX-XXXX-XXXX-XXXX keys uniformly from [A-Z0-9]
type RandomKeyGenerator struct{}

// Generate returns a new key
func (RandomKeyGenerator) Generate() (string, error) {
	alphabet := config.KeyAlphabet
	max := big.NewInt(int64(len(alphabet)))

	var b strings.Builder
	b.Grow(config.KeyGroupCount*(config.KeyGroupLength+1) - 1)

	for g := 0; g < config.KeyGroupCount; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < config.KeyGroupLength; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("failed to read random source: %w", err)
			}
			b.WriteByte(alphabet[n.Int64()])
		}
	}

	return b.String(), nil
}

// ValidKeyFormat reports whether key has the XXXX-XXXX-XXXX-XXXX shape
func ValidKeyFormat(key string) bool {
	groups := strings.Split(key, "-")
	if len(groups) != config.KeyGroupCount {
		return false
	}
	for _, g := range groups {
		if len(g) != config.KeyGroupLength {
			return false
		}
		for i := 0; i < len(g); i++ {
			if !strings.ContainsRune(config.KeyAlphabet, rune(g[i])) {
				return false
			}
		}
	}
	return true
}

package license

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestRandomKeyGenerator(t *testing.T) {
	gen := RandomKeyGenerator{}
	seen := make(map[string]struct{}, 500)

	for i := 0; i < 500; i++ {
		key, err := gen.Generate()
		require.NoError(t, err)
		assert.Regexp(t, keyPattern, key)
		assert.True(t, ValidKeyFormat(key))
		seen[key] = struct{}{}
	}

	assert.Len(t, seen, 500, "keys should not repeat in a small sample")
}

func TestValidKeyFormat(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"valid", "AB12-CD34-EF56-GH78", true},
		{"all digits", "0000-1111-2222-3333", true},
		{"lowercase", "ab12-CD34-EF56-GH78", false},
		{"three groups", "AB12-CD34-EF56", false},
		{"short group", "AB1-CD34-EF56-GH78", false},
		{"symbol", "AB1!-CD34-EF56-GH78", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidKeyFormat(tt.key))
		})
	}
}

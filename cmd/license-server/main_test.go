package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAdminKey(t *testing.T) {
	hash, err := hashAdminKey("pos-admin")
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pos-admin")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("other")))
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"help"}, 0},
		{"hash", []string{"hash-key", "k"}, 0},
		{"hash without key", []string{"hash-key"}, 2},
		{"hash with empty key", []string{"hash-key", ""}, 2},
		{"unknown", []string{"serve-forever"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runCommand(tt.args))
		})
	}
}

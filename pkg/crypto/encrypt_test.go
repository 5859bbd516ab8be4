package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewSealer_KeyLength(t *testing.T) {
	_, err := NewSealer("short")
	assert.Error(t, err)
}

func TestSealer_SealOpen(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("Two EAL pupils, one with dyslexia")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "dyslexia")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Two EAL pupils, one with dyslexia", plain)
}

func TestSealer_OpenPlaintextPassthrough(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	plain, err := s.Open("written before encryption")
	require.NoError(t, err)
	assert.Equal(t, "written before encryption", plain)
}

func TestSealer_OpenWrongKey(t *testing.T) {
	a, err := NewSealer(testKey)
	require.NoError(t, err)
	b, err := NewSealer("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	sealed, err := a.Seal("notes")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

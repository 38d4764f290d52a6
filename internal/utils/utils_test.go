package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundtrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong-pass"))
	assert.False(t, CheckPassword("", "s3cret-pass"))
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("same")
	require.NoError(t, err)
	h2, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestNewReceiptNo(t *testing.T) {
	r1 := NewReceiptNo()
	r2 := NewReceiptNo()

	assert.True(t, strings.HasPrefix(r1, "RCP-"))
	assert.Len(t, r1, len("RCP-")+12)
	assert.Equal(t, strings.ToUpper(r1), r1)
	assert.NotEqual(t, r1, r2)
}

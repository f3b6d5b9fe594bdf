package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum32HexShape(t *testing.T) {
	sum := Sum32Hex("necessary|analytics|marketing")
	assert.Len(t, sum, 8)
	assert.Regexp(t, "^[0-9a-f]{8}$", sum)
}

func TestSum32HexDeterministic(t *testing.T) {
	assert.Equal(t, Sum32Hex("abc"), Sum32Hex("abc"))
	assert.NotEqual(t, Sum32Hex("abc"), Sum32Hex("abd"))
	assert.NotEqual(t, Sum32Hex("abc"), Sum32Hex("abc "))
}

func TestSum32HexEmptyInput(t *testing.T) {
	// djb2 seed rendered directly when there is no input.
	assert.Equal(t, "00001505", Sum32Hex(""))
}

func TestKeyedDigest(t *testing.T) {
	k, err := NewKeyed([]byte("audit-signing-key"))
	require.NoError(t, err)

	sum := k.Sum("payload")
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, k.Sum("payload"))

	other, err := NewKeyed([]byte("different-key"))
	require.NoError(t, err)
	assert.NotEqual(t, sum, other.Sum("payload"))
}

func TestKeyedRejectsOversizedKey(t *testing.T) {
	_, err := NewKeyed(make([]byte, 65))
	assert.Error(t, err)
}

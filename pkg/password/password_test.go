package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashWithCost("correct horse", MinCost)
	require.NoError(t, err)

	assert.True(t, Verify("correct horse", hash))
	assert.False(t, Verify("wrong horse", hash))
}

func TestHash_Empty(t *testing.T) {
	_, err := Hash("")
	assert.Error(t, err)
}

func TestVerify_EmptyHashNeverMatches(t *testing.T) {
	assert.False(t, Verify("", ""))
	assert.False(t, Verify("anything", ""))
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashWithCost("correct horse", MinCost)
	require.NoError(t, err)

	needs, err := NeedsRehash(hash, DefaultCost)
	require.NoError(t, err)
	assert.True(t, needs)

	_, err = NeedsRehash("not-a-hash", DefaultCost)
	assert.Error(t, err)
}

func TestDummyHashIsWellFormed(t *testing.T) {
	needs, err := NeedsRehash(dummyHash, DefaultCost)
	require.NoError(t, err)
	assert.False(t, needs)
}

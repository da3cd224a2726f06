package idgen

import (
	"sort"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducesValidULIDs(t *testing.T) {
	id := New()
	assert.Len(t, id, 26)
	_, err := ulid.Parse(id)
	require.NoError(t, err)
}

func TestNewIsUniqueAndSorted(t *testing.T) {
	const n = 1000
	ids := make([]string, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		ids[i] = New()
		assert.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
	}

	// Monotonic entropy keeps generation order and lexical order aligned.
	assert.True(t, sort.StringsAreSorted(ids))
}

package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLastConnectionWins(t *testing.T) {
	r := NewRegistry()
	first := &Client{}
	second := &Client{}

	assert.Nil(t, r.Register("alice", first))
	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, first, got)

	// A second device takes over routing and reports who it replaced.
	assert.Same(t, first, r.Register("alice", second))
	got, ok = r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryStaleUnregisterDoesNotEvict(t *testing.T) {
	r := NewRegistry()
	first := &Client{}
	second := &Client{}

	r.Register("alice", first)
	r.Register("alice", second)

	// The superseded connection's disconnect must not evict the newer one.
	assert.False(t, r.Unregister("alice", first))
	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, r.Unregister("alice", second))
	_, ok = r.Lookup("alice")
	assert.False(t, ok)
}

func TestRegistryUnregisterUnknownUser(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Unregister("ghost", &Client{}))
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Snapshot())

	r.Register("alice", &Client{})
	r.Register("bob", &Client{})

	assert.ElementsMatch(t, []string{"alice", "bob"}, r.Snapshot())

	r.Register("alice", &Client{}) // reconnect must not duplicate
	assert.Len(t, r.Snapshot(), 2)
}

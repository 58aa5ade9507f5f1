// Package storetest holds the behaviour suite every storage.Store engine
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/respd-go/internal/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"GetSet", testGetSet},
		{"SetModes", testSetModes},
		{"SetTTL", testSetTTL},
		{"Update", testUpdate},
		{"DeleteExists", testDeleteExists},
		{"ExpirePersist", testExpirePersist},
		{"KeysLenFlush", testKeysLenFlush},
		{"Closed", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			if tt.fn == nil {
				require.NoError(t, s.Close())
				_, _, err := s.Get(context.Background(), []byte("k"))
				assert.ErrorIs(t, err, storage.ErrClosed)
				return
			}
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func testGetSet(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, []byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	res, err := s.Set(ctx, []byte("k"), []byte("v1"), storage.SetOptions{})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.HadOld)

	res, err = s.Set(ctx, []byte("k"), []byte("v2"), storage.SetOptions{})
	require.NoError(t, err)
	assert.True(t, res.HadOld)
	assert.Equal(t, []byte("v1"), res.Old)

	v, ok, err := s.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), v)

	_, err = s.Set(ctx, []byte("empty"), []byte{}, storage.SetOptions{})
	require.NoError(t, err)
	v, ok, err = s.Get(ctx, []byte("empty"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)
}

func testSetModes(t *testing.T, s storage.Store) {
	ctx := context.Background()

	res, err := s.Set(ctx, []byte("k"), []byte("a"), storage.SetOptions{Mode: storage.SetIfPresent})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	n, _ := s.Exists(ctx, []byte("k"))
	assert.Equal(t, 0, n)

	res, err = s.Set(ctx, []byte("k"), []byte("a"), storage.SetOptions{Mode: storage.SetIfAbsent})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = s.Set(ctx, []byte("k"), []byte("b"), storage.SetOptions{Mode: storage.SetIfAbsent})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, []byte("a"), res.Old)

	res, err = s.Set(ctx, []byte("k"), []byte("c"), storage.SetOptions{Mode: storage.SetIfPresent})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	v, _, _ := s.Get(ctx, []byte("k"))
	assert.Equal(t, []byte("c"), v)
}

func testSetTTL(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.Set(ctx, []byte("k"), []byte("v"), storage.SetOptions{TTL: 100 * time.Second})
	require.NoError(t, err)
	ttl, err := s.TTL(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Greater(t, ttl, 90*time.Second)
	assert.LessOrEqual(t, ttl, 101*time.Second)

	// KEEPTTL keeps the deadline, a plain SET clears it.
	_, err = s.Set(ctx, []byte("k"), []byte("v2"), storage.SetOptions{KeepTTL: true})
	require.NoError(t, err)
	ttl, _ = s.TTL(ctx, []byte("k"))
	assert.Greater(t, ttl, 90*time.Second)

	_, err = s.Set(ctx, []byte("k"), []byte("v3"), storage.SetOptions{})
	require.NoError(t, err)
	ttl, _ = s.TTL(ctx, []byte("k"))
	assert.Equal(t, storage.NoExpiry, ttl)

	ttl, _ = s.TTL(ctx, []byte("missing"))
	assert.Equal(t, storage.NoKey, ttl)
}

func testUpdate(t *testing.T, s storage.Store) {
	ctx := context.Background()

	appendX := func(old []byte, _ bool) ([]byte, error) {
		return append(append([]byte{}, old...), 'x'), nil
	}
	out, err := s.Update(ctx, []byte("k"), appendX)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), out)

	_, err = s.Expire(ctx, []byte("k"), 100*time.Second)
	require.NoError(t, err)

	out, err = s.Update(ctx, []byte("k"), appendX)
	require.NoError(t, err)
	assert.Equal(t, []byte("xx"), out)

	ttl, _ := s.TTL(ctx, []byte("k"))
	assert.Greater(t, ttl, 90*time.Second, "update keeps the expiry")

	boom := errors.New("boom")
	_, err = s.Update(ctx, []byte("k"), func([]byte, bool) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	v, _, _ := s.Get(ctx, []byte("k"))
	assert.Equal(t, []byte("xx"), v)

	_, err = s.Update(ctx, []byte("new"), func(old []byte, exists bool) ([]byte, error) {
		assert.False(t, exists)
		assert.Nil(t, old)
		return []byte("1"), nil
	})
	require.NoError(t, err)
}

func testDeleteExists(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.Set(ctx, []byte(k), []byte(k), storage.SetOptions{})
		require.NoError(t, err)
	}

	n, err := s.Exists(ctx, []byte("a"), []byte("a"), []byte("z"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Delete(ctx, []byte("a"), []byte("b"), []byte("z"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, _ = s.Exists(ctx, []byte("a"), []byte("b"), []byte("c"))
	assert.Equal(t, 1, n)
}

func testExpirePersist(t *testing.T, s storage.Store) {
	ctx := context.Background()

	ok, err := s.Expire(ctx, []byte("missing"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = s.Set(ctx, []byte("k"), []byte("v"), storage.SetOptions{})

	ok, err = s.Persist(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok, "no expiry to remove")

	ok, err = s.Expire(ctx, []byte("k"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Persist(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	ttl, _ := s.TTL(ctx, []byte("k"))
	assert.Equal(t, storage.NoExpiry, ttl)

	ok, err = s.Expire(ctx, []byte("k"), 0)
	require.NoError(t, err)
	assert.True(t, ok)
	_, found, _ := s.Get(ctx, []byte("k"))
	assert.False(t, found, "non-positive ttl deletes")
}

func testKeysLenFlush(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, k := range []string{"user:1", "user:2", "session:1"} {
		_, err := s.Set(ctx, []byte(k), []byte("v"), storage.SetOptions{})
		require.NoError(t, err)
	}

	keys, err := s.Keys(ctx, []byte("user:*"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("user:1"), []byte("user:2")}, keys)

	keys, err = s.Keys(ctx, []byte("*:1"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("session:1"), []byte("user:1")}, keys)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.Flush(ctx))
	n, _ = s.Len(ctx)
	assert.Equal(t, 0, n)
}

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func Test_KeyOf_IsDeterministicAndDistinct(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(KeyOf("same"), KeyOf("same"))
	assert.NotEqual(KeyOf("one"), KeyOf("other"))
}

func Test_Store_PutGet_RoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	s := openTestStore(t)
	key := KeyOf("grammar text")

	put, err := s.Put(ctx, key, "the blob")
	require.NoError(err)
	assert.Equal(key, put.Key)
	assert.Equal("the blob", put.Blob)

	got, err := s.Get(ctx, key)
	require.NoError(err)
	assert.Equal(put.ID, got.ID)
	assert.Equal(put.Blob, got.Blob)

	byID, err := s.GetByID(ctx, put.ID)
	require.NoError(err)
	assert.Equal(put.Blob, byID.Blob)
}

func Test_Store_Put_OverwritesPriorArtifactForSameKey(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	s := openTestStore(t)
	key := KeyOf("grammar text")

	first, err := s.Put(ctx, key, "v1")
	require.NoError(err)

	second, err := s.Put(ctx, key, "v2")
	require.NoError(err)

	got, err := s.Get(ctx, key)
	require.NoError(err)
	require.Equal("v2", got.Blob)
	require.Equal(second.ID, got.ID)
	require.NotEqual(first.ID, second.ID)
}

func Test_Store_Get_ReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Get(ctx, KeyOf("never put"))
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

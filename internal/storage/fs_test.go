package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutGetList(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key, err := s.Put("reports/ranking-1.csv", strings.NewReader("rank,name\n1,Andi\n"))
	require.NoError(t, err)
	assert.Equal(t, "reports/ranking-1.csv", key)

	rc, err := s.Get(key)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "rank,name\n1,Andi\n", string(b))

	_, err = s.Put("reports/ranking-2.csv", strings.NewReader("x"))
	require.NoError(t, err)
	keys, err := s.List("reports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/ranking-1.csv", "reports/ranking-2.csv"}, keys)

	u, err := s.SignedURL(key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, k := range []string{"", "../secret", "reports/../../x", `reports\x`, "a//b"} {
		_, err := s.Put(k, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, k)
		_, err = s.Get(k)
		assert.ErrorIs(t, err, ErrInvalidKey, k)
	}

	_, err = s.Get("reports/missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := s.List("nothing-here")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

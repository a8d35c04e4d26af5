package cmd

import (
	"testing"

	"github.com/ValentinKolb/sDB/lib/common"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/ValentinKolb/sDB/lib/store/fstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedCommandReleasesStore(t *testing.T) {
	dir := t.TempDir()

	RootCmd.SetArgs([]string{"doc", "get", "missing", "1", "--dir", dir, "--secret", "k"})
	err := run()
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)

	s, err := fstore.Open(common.DefaultStoreConfig(dir, []byte("k")))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	RootCmd.SetArgs([]string{"doc", "set", "c", "1", `{"a":1}`, "--dir", dir, "--secret", "k"})
	require.NoError(t, run())

	s, err = fstore.Open(common.DefaultStoreConfig(dir, []byte("k")))
	require.NoError(t, err)
	defer s.Close()
	exists, err := s.Exists("c", "1")
	require.NoError(t, err)
	assert.True(t, exists)
}

package persistence

import (
	"testing"

	bolt "go.etcd.io/bbolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesAllBuckets(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	err = store.View(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			assert.NotNil(t, tx.Bucket(name), "missing bucket %s", name)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestOpen_SecondInstanceIsRejected(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	_, err = Open(dir)
	assert.ErrorIs(t, err, ErrDataDirInUse)
}

func TestOpen_LockReleasedAfterClose(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store2, err := Open(dir)
	require.NoError(t, err)
	store2.Close()
}

func TestUpdate_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	err = store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketChannels).Put([]byte("chan-1"), []byte("state"))
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store2, err := Open(dir)
	require.NoError(t, err)
	defer store2.Close()

	err = store2.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(BucketChannels).Get([]byte("chan-1"))
		assert.Equal(t, []byte("state"), v)
		return nil
	})
	require.NoError(t, err)
}

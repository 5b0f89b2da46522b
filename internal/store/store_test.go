package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleDoc struct {
	Counter int      `json:"counter"`
	Tags    []string `json:"tags"`
}

func newTestCollection(t *testing.T) (*Collection[sampleDoc], string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "sample.json")
	col, err := NewCollection[sampleDoc](path, zerolog.Nop())
	require.NoError(t, err)
	return col, path
}

func TestCollectionLoadMissingFileReturnsZeroValue(t *testing.T) {
	t.Parallel()
	col, _ := newTestCollection(t)

	doc, err := col.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleDoc{}, doc)
}

func TestCollectionMutateRoundTrip(t *testing.T) {
	t.Parallel()
	col, path := newTestCollection(t)

	err := col.Mutate(func(current sampleDoc) (sampleDoc, error) {
		current.Counter = 7
		current.Tags = append(current.Tags, "a", "b")
		return current, nil
	})
	require.NoError(t, err)

	doc, err := col.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, doc.Counter)
	assert.Equal(t, []string{"a", "b"}, doc.Tags)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCollectionMutateErrorLeavesFileUntouched(t *testing.T) {
	t.Parallel()
	col, path := newTestCollection(t)

	require.NoError(t, col.Mutate(func(current sampleDoc) (sampleDoc, error) {
		current.Counter = 1
		return current, nil
	}))

	sentinel := assert.AnError
	err := col.Mutate(func(current sampleDoc) (sampleDoc, error) {
		current.Counter = 999
		return current, sentinel
	})
	require.ErrorIs(t, err, sentinel)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"counter": 1`)
}

func TestCollectionLoadCorruptFileReturnsCorruptStateError(t *testing.T) {
	t.Parallel()
	col, path := newTestCollection(t)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := col.Load()
	var corruptErr *CorruptStateError
	require.ErrorAs(t, err, &corruptErr)
	assert.Equal(t, path, corruptErr.Path)
}

func TestCollectionLoadEmptyFileReturnsZeroValue(t *testing.T) {
	t.Parallel()
	col, path := newTestCollection(t)

	require.NoError(t, os.WriteFile(path, []byte{}, 0o600))

	doc, err := col.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleDoc{}, doc)
}

func TestCollectionConcurrentMutatePreservesAllIncrements(t *testing.T) {
	col, _ := newTestCollection(t)

	const goroutines = 25
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			err := col.Mutate(func(current sampleDoc) (sampleDoc, error) {
				current.Counter++
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := col.Load()
	require.NoError(t, err)
	assert.Equal(t, goroutines, doc.Counter)
}

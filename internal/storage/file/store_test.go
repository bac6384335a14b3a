package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azfinsim/internal/storage"
)

func writeDump(t *testing.T, path string, pairs ...string) {
	t.Helper()

	out, err := Open(path, false)
	require.NoError(t, err)

	pipe := out.Pipeline()
	for i := 0; i+1 < len(pairs); i += 2 {
		pipe.Set(pairs[i], []byte(pairs[i+1]))
	}
	require.NoError(t, pipe.Exec(context.Background()))
	require.NoError(t, out.Close())
}

func TestPipeline_ExecWritesPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.txt")

	out, err := Open(path, false)
	require.NoError(t, err)

	ctx := context.Background()

	first := out.Pipeline()
	first.Set("ey0000000.xml", []byte("<a/>"))
	first.Set("ey0000001.xml", []byte("<b/>"))
	assert.Equal(t, 2, first.Len())
	require.NoError(t, first.Exec(ctx))
	assert.Equal(t, 0, first.Len())

	second := out.Pipeline()
	second.Set("ey0000002.xml", []byte("<c/>"))
	require.NoError(t, second.Exec(ctx))
	require.NoError(t, out.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ey0000000.xml\n<a/>\ney0000001.xml\n<b/>\ney0000002.xml\n<c/>\n", string(data))
}

func TestOpen_OutputTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale\ncontent\n"), 0o644))

	out, err := Open(path, false)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestOpen_MissingInput(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt"), true)
	if !errors.Is(err, storage.ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}
}

func TestStore_GetSetNotSupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.txt")
	out, err := Open(path, false)
	require.NoError(t, err)
	defer out.Close()

	ctx := context.Background()

	_, err = out.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotSupported)

	err = out.Set(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, storage.ErrNotSupported)

	assert.False(t, out.ConcurrentPipelines())
}

func TestPipeline_ExecOnInputNotSupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.txt")
	writeDump(t, path, "k", "v")

	in, err := Open(path, true)
	require.NoError(t, err)
	defer in.Close()

	pipe := in.Pipeline()
	pipe.Set("k2", []byte("v2"))
	assert.ErrorIs(t, pipe.Exec(context.Background()), storage.ErrNotSupported)
}

func TestStore_Scan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.txt")
	writeDump(t, path, "ey0000000.xml", "<a/>", "ey0000001.xml", "<b/>")

	in, err := Open(path, true)
	require.NoError(t, err)
	defer in.Close()

	var got []storage.Entry
	for e, err := range in.Scan(context.Background()) {
		require.NoError(t, err)
		got = append(got, e)
	}

	want := []storage.Entry{
		{Key: "ey0000000.xml", Value: []byte("<a/>")},
		{Key: "ey0000001.xml", Value: []byte("<b/>")},
	}
	assert.Equal(t, want, got)
}

func TestStore_ScanDanglingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.txt")
	require.NoError(t, os.WriteFile(path, []byte("k1\nv1\nk2\n"), 0o644))

	in, err := Open(path, true)
	require.NoError(t, err)
	defer in.Close()

	var (
		entries int
		lastErr error
	)
	for _, err := range in.Scan(context.Background()) {
		if err != nil {
			lastErr = err
			break
		}
		entries++
	}

	assert.Equal(t, 1, entries)
	assert.ErrorIs(t, lastErr, storage.ErrIO)
}

func TestStore_ScanOnOutput(t *testing.T) {
	out, err := Open(filepath.Join(t.TempDir(), "trades.txt"), false)
	require.NoError(t, err)
	defer out.Close()

	for _, err := range out.Scan(context.Background()) {
		assert.ErrorIs(t, err, storage.ErrNotSupported)
	}
}

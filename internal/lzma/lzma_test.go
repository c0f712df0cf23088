package lzma

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	xzlzma "github.com/ulikunitz/xz/lzma"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name string, plaintext []byte) string {
	t.Helper()
	var buf bytes.Buffer
	cfg := xzlzma.WriterConfig{Size: int64(len(plaintext))}
	w, err := cfg.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestDecompressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeated many times for good measure")
	src := writeFixture(t, dir, "game.dat.lzma", plaintext)
	dest := filepath.Join(dir, "game.dat")

	err := Decompress(context.Background(), src, dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecompressTruncatedStreamFails(t *testing.T) {
	dir := t.TempDir()
	plaintext := []byte("some reasonably long plaintext body to compress for the test")
	src := writeFixture(t, dir, "game.dat.lzma", plaintext)

	raw, err := os.ReadFile(src)
	require.NoError(t, err)
	truncated := raw[:len(raw)-5]
	require.NoError(t, os.WriteFile(src, truncated, 0644))

	dest := filepath.Join(dir, "game.dat")
	err = Decompress(context.Background(), src, dest)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	require.True(t, os.IsNotExist(statErr))
}

func TestDecompressCancelRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	plaintext := bytes.Repeat([]byte("x"), 10*1024*1024)
	src := writeFixture(t, dir, "big.dat.lzma", plaintext)
	dest := filepath.Join(dir, "big.dat")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Decompress(ctx, src, dest)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	require.True(t, os.IsNotExist(statErr))
}

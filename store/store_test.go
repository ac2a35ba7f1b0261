package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, res Resource) string {
	rc, err := res.Reader(context.Background())
	require.NoError(t, err)
	defer func() { require.NoError(t, rc.Close()) }()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStore(zerolog.Nop(), dir)
	require.NoError(t, err)

	res, err := s.Put(ctx, "debug/20240101/orders_source.csv", strings.NewReader("id,name\n1,a\n"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "debug", "20240101", "orders_source.csv"), res.Location())
	require.Equal(t, "id,name\n1,a\n", readAll(t, res))

	require.NoError(t, res.MarkForCleanup(ctx))
	_, err = os.Stat(res.Location())
	require.NoError(t, err)
	require.NoError(t, s.Cleanup(ctx))
	_, err = os.Stat(res.Location())
	require.True(t, os.IsNotExist(err))
}

func TestCompressedStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	local, err := NewLocalStore(zerolog.Nop(), dir)
	require.NoError(t, err)
	s := Compressed(local)

	payload := strings.Repeat("order_id,amount\n1,12.50\n", 500)
	res, err := s.Put(ctx, "orders_source.csv", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "orders_source.csv.zst"), res.Location())

	fi, err := os.Stat(res.Location())
	require.NoError(t, err)
	require.Less(t, fi.Size(), int64(len(payload)))
	require.Equal(t, payload, readAll(t, res))
}

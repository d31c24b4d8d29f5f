package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/utils"
)

func TestFileWatermarkStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_sync.json")
	s := NewFileWatermarkStore(path, utils.KathmanduTZ)
	ctx := context.Background()

	want := time.Date(2024, 11, 28, 0, 0, 0, 0, utils.KathmanduTZ)
	require.NoError(t, s.Commit(ctx, want.UTC()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_sync_date":"2024-11-28T00:00:00+05:45"}`, string(b))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, "2024-11-28T00:00:00+05:45", got.Format(utils.ISOLayout))
}

func TestFileWatermarkStoreConfigErrors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := NewFileWatermarkStore(filepath.Join(dir, "missing.json"), nil).Read(ctx)
	assert.True(t, errors.Is(err, core.ErrConfig))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"last_sync_date": "soon"}`), 0o644))
	_, err = NewFileWatermarkStore(bad, nil).Read(ctx)
	assert.True(t, errors.Is(err, core.ErrConfig))

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"last_sync_date": `), 0o644))
	_, err = NewFileWatermarkStore(broken, nil).Read(ctx)
	assert.True(t, errors.Is(err, core.ErrConfig))
}

func TestFileWatermarkStoreAcceptsNaiveTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_sync.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"last_sync_date": "2024-11-28 00:00:00"}`), 0o644))

	got, err := NewFileWatermarkStore(path, utils.KathmanduTZ).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-11-28T00:00:00+05:45", got.Format(utils.ISOLayout))
}

func TestFileWatermarkStoreSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "last_sync.json")
	s := NewFileWatermarkStore(path, utils.KathmanduTZ)
	ctx := context.Background()

	first := time.Date(2024, 11, 1, 0, 0, 0, 0, utils.KathmanduTZ)
	created, err := s.Seed(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Seed(ctx, first.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.True(t, first.Equal(got))

	require.NoError(t, s.Reset(ctx, first.AddDate(0, -1, 0)))
	got, err = s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-01T00:00:00+05:45", got.Format(utils.ISOLayout))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelInfo, ParseLogLevel("info"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelSilent, ParseLogLevel(""))
}

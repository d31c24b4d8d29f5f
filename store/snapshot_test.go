package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/report"
)

func TestFileSnapshotStore(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSnapshotStore(filepath.Join(dir, "attendance_records.json"))
	s.Workbook = true
	savedAt := time.Date(2024, 11, 29, 0, 0, 5, 0, time.UTC)
	s.Now = func() time.Time { return savedAt }

	_, ok := s.Latest()
	assert.False(t, ok)

	payload := model.SyncPayload{
		"2024-11-28": {"u1": {{PersonID: "u1", PersonName: "Asha", Time: "2024-11-28T09:00:00+05:45"}}},
	}
	require.NoError(t, s.Save(context.Background(), "10.0.0.1", payload))

	b, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n    \"2024-11-28\": {", "indented with four spaces")

	var back model.SyncPayload
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, payload, back)

	sheet, err := os.ReadFile(filepath.Join(dir, "attendance_records.xlsx"))
	require.NoError(t, err)
	rows, err := report.Rows(sheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", latest.DeviceIP)
	assert.Equal(t, savedAt, latest.SavedAt)

	require.NoError(t, s.Save(context.Background(), "10.0.0.2", nil))
	b, err = os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b), "previous snapshot is overwritten")
}

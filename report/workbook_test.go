package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axiapac.com/punchsync/model"
)

func TestWorkbook(t *testing.T) {
	payload := model.SyncPayload{
		"2024-11-29": {
			"u2": {{PersonID: "u2", PersonName: "Bikash", Time: "2024-11-29T08:00:00+05:45", Status: 0}},
		},
		"2024-11-28": {
			"u1": {
				{PersonID: "u1", PersonName: "Asha", Time: "2024-11-28T09:00:00+05:45", Status: 0},
				{PersonID: "u1", PersonName: "Asha", Time: "2024-11-28T18:00:00+05:45", Status: 1},
			},
		},
	}

	data, err := Workbook("192.168.1.201", payload)
	require.NoError(t, err)

	rows, err := Rows(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-11-28", "u1", "Asha", "2024-11-28T09:00:00+05:45", "0", "2024-11-28T18:00:00+05:45", "1"}, rows[0])
	assert.Equal(t, []string{"2024-11-29", "u2", "Bikash", "2024-11-29T08:00:00+05:45", "0"}, rows[1])
}

func TestWorkbookEmptyPayload(t *testing.T) {
	data, err := Workbook("10.0.0.1", model.SyncPayload{})
	require.NoError(t, err)

	rows, err := Rows(data)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

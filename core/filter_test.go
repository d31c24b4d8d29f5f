package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"axiapac.com/punchsync/model"
)

func rec(id, ts string) model.CanonicalRecord {
	return model.CanonicalRecord{PersonID: id, PersonName: "Unknown User", Time: ts}
}

func TestFilterWindow(t *testing.T) {
	records := []model.CanonicalRecord{
		rec("u1", "2024-11-27T23:59:59+05:45"),
		rec("u1", "2024-11-28T00:00:00+05:45"),
		rec("u2", "2024-11-28T12:00:00+05:45"),
		rec("u2", "2024-11-29T00:00:00+05:45"),
		rec("u3", "2024-11-29T00:00:01+05:45"),
		rec("u4", "garbage"),
	}
	wm := at("2024-11-28T00:00:00+05:45")
	now := at("2024-11-29T00:00:00+05:45")

	got := FilterWindow(records, wm, now)
	assert.Equal(t, []model.CanonicalRecord{records[1], records[2], records[3]}, got)

	for _, r := range got {
		ts := at(r.Time)
		assert.False(t, ts.Before(wm))
		assert.False(t, ts.After(now))
	}

	assert.Equal(t, got, FilterWindow(got, wm, now), "filtering is idempotent")
}

func TestFilterWindowComparesInstants(t *testing.T) {
	// 03:00Z is 08:45 in the fixed zone, inside the window even though the
	// strings would sort before it.
	records := []model.CanonicalRecord{rec("u1", "2024-11-28T03:00:00+00:00")}
	got := FilterWindow(records, at("2024-11-28T08:00:00+05:45"), at("2024-11-28T09:00:00+05:45"))
	assert.Len(t, got, 1)
}

func TestFilterWindowEmptyWhenWatermarkAfterNow(t *testing.T) {
	records := []model.CanonicalRecord{rec("u1", "2024-11-28T09:00:00+05:45")}
	got := FilterWindow(records, at("2024-11-29T00:00:00+05:45"), at("2024-11-28T00:00:00+05:45").Add(time.Hour))
	assert.Empty(t, got)
}

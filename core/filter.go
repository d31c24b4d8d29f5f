package core

import (
	"time"

	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
)

// FilterWindow keeps the records whose instant lies in [watermark, now].
func FilterWindow(records []model.CanonicalRecord, watermark, now time.Time) []model.CanonicalRecord {
	return utils.Filter(records, func(r model.CanonicalRecord) bool {
		t, err := time.Parse(utils.ISOLayout, r.Time)
		if err != nil {
			return false
		}
		return !t.Before(watermark) && !t.After(now)
	})
}

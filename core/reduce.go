package core

import (
	"sort"
	"time"

	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
)

type stampedRecord struct {
	model.CanonicalRecord
	at time.Time
}

// Reduce groups records by (date in zone, person) and keeps the first and last
// punch of each group. A group with one record, or whose first and last are
// identical, yields a single record. Every emitted record carries the person
// id and the first record's name.
func Reduce(records []model.CanonicalRecord, zone *time.Location) model.SyncPayload {
	stamped := make([]stampedRecord, 0, len(records))
	for _, r := range records {
		t, err := time.Parse(utils.ISOLayout, r.Time)
		if err != nil {
			continue
		}
		stamped = append(stamped, stampedRecord{CanonicalRecord: r, at: t.In(zone)})
	}

	payload := model.SyncPayload{}
	byDate := utils.GroupBy(stamped, func(r stampedRecord) string {
		return r.at.Format(utils.DateLayout)
	})
	for date, dayRecords := range byDate {
		byPerson := utils.GroupBy(dayRecords, func(r stampedRecord) string {
			return r.PersonID
		})
		people := make(map[string][]model.CanonicalRecord, len(byPerson))
		for id, group := range byPerson {
			people[id] = firstLast(id, group)
		}
		payload[date] = people
	}
	return payload
}

func firstLast(id string, group []stampedRecord) []model.CanonicalRecord {
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].at.Before(group[j].at)
	})

	name := group[0].PersonName
	first := group[0].CanonicalRecord
	last := group[len(group)-1].CanonicalRecord
	first.PersonID, first.PersonName = id, name
	last.PersonID, last.PersonName = id, name

	if last == first {
		return []model.CanonicalRecord{first}
	}
	return []model.CanonicalRecord{first, last}
}

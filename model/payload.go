package model

import "sort"

// SyncPayload maps date -> person id -> daily first/last records.
// It is both the snapshot file format and the body of a delivery.
type SyncPayload map[string]map[string][]CanonicalRecord

// Delivery is the JSON body posted to the collector.
type Delivery struct {
	OrganizationID string        `json:"organization_id"`
	Data           []SyncPayload `json:"data"`
}

// LogEntry is the JSON body posted to the log collector.
type LogEntry struct {
	LogText  string `json:"log_text"`
	DeviceIP string `json:"device_ip"`
}

// Count returns the number of records across all dates and people.
func (p SyncPayload) Count() int {
	n := 0
	for _, people := range p {
		for _, records := range people {
			n += len(records)
		}
	}
	return n
}

func (p SyncPayload) IsEmpty() bool {
	return p.Count() == 0
}

// Dates returns the payload dates in ascending order.
func (p SyncPayload) Dates() []string {
	dates := make([]string, 0, len(p))
	for d := range p {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// PersonIDs returns the ids present on date, sorted.
func (p SyncPayload) PersonIDs(date string) []string {
	people := p[date]
	ids := make([]string, 0, len(people))
	for id := range people {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

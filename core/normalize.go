package core

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
)

// Normalize turns a raw terminal event into a canonical record in zone.
// Naive timestamps are wall-clock time in zone; timestamps with an offset are
// converted into it. The name comes from names, else "Unknown User".
func Normalize(ev model.PunchEvent, names map[string]string, zone *time.Location) (model.CanonicalRecord, error) {
	id := strings.TrimSpace(ev.PersonID)
	if id == "" {
		return model.CanonicalRecord{}, fmt.Errorf("%w: punch without user id", ErrProtocol)
	}

	t, err := utils.ParseLocalTime(ev.Timestamp, zone)
	if err != nil {
		return model.CanonicalRecord{}, fmt.Errorf("%w: user %s: %v", ErrProtocol, id, err)
	}

	name, ok := names[id]
	if !ok || name == "" {
		name = model.UnknownUser
	}

	return model.CanonicalRecord{
		PersonID:   id,
		PersonName: name,
		Time:       t.In(zone).Format(utils.ISOLayout),
		Status:     ev.Status,
	}, nil
}

// NormalizeAll normalizes a batch, dropping and logging malformed events.
func NormalizeAll(events []model.PunchEvent, names map[string]string, zone *time.Location, logger *slog.Logger) ([]model.CanonicalRecord, int) {
	records := make([]model.CanonicalRecord, 0, len(events))
	dropped := 0
	for _, ev := range events {
		rec, err := Normalize(ev, names, zone)
		if err != nil {
			dropped++
			if logger != nil {
				logger.Warn("dropping malformed punch", "user_id", ev.PersonID, "timestamp", ev.Timestamp, "error", err)
			}
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

// NameLookup builds the id -> name map for a device. Directory entries win,
// names carried on events fill the gaps.
func NameLookup(persons []model.Person, events []model.PunchEvent) map[string]string {
	names := make(map[string]string, len(persons))
	for _, p := range persons {
		id := strings.TrimSpace(p.ID)
		if id == "" || p.Name == "" {
			continue
		}
		names[id] = p.Name
	}
	for _, ev := range events {
		id := strings.TrimSpace(ev.PersonID)
		if _, ok := names[id]; ok || id == "" || ev.PersonName == "" {
			continue
		}
		names[id] = ev.PersonName
	}
	return names
}

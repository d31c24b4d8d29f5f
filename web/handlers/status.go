package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/utils"
	"axiapac.com/punchsync/web/common"
)

type CycleDTO struct {
	DeviceIP          string `json:"device_ip"`
	OrganizationID    string `json:"organization_id"`
	State             string `json:"state"`
	Category          string `json:"category,omitempty"`
	Error             string `json:"error,omitempty"`
	Fetched           int    `json:"fetched"`
	Dropped           int    `json:"dropped"`
	Kept              int    `json:"kept"`
	Delivered         int    `json:"delivered"`
	Watermark         string `json:"watermark,omitempty"`
	WatermarkAdvanced bool   `json:"watermark_advanced"`
	LogShipped        bool   `json:"log_shipped"`
	DurationMS        int64  `json:"duration_ms"`
}

type SweepDTO struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Aborted    bool       `json:"aborted"`
	Skipped    []string   `json:"skipped,omitempty"`
	Results    []CycleDTO `json:"results"`
}

func NewSweepDTO(s core.SweepSummary) SweepDTO {
	return SweepDTO{
		ID:         s.ID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Succeeded:  s.Succeeded(),
		Failed:     s.Failed(),
		Aborted:    s.Aborted,
		Skipped:    s.Skipped,
		Results:    utils.Map(s.Results, newCycleDTO),
	}
}

func newCycleDTO(r core.CycleResult) CycleDTO {
	dto := CycleDTO{
		DeviceIP:          r.Device.IP,
		OrganizationID:    r.Device.OrganizationID,
		State:             string(r.State),
		Fetched:           r.Fetched,
		Dropped:           r.Dropped,
		Kept:              r.Kept,
		Delivered:         r.Delivered,
		WatermarkAdvanced: r.WatermarkAdvanced,
		LogShipped:        r.LogShipped,
		DurationMS:        r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		dto.Category = core.Category(r.Err)
		dto.Error = r.Err.Error()
	}
	if !r.Watermark.IsZero() {
		dto.Watermark = r.Watermark.Format(utils.ISOLayout)
	}
	return dto
}

// GetStatus returns the last sweep summary, or 204 before the first sweep.
func (h *Handlers) GetStatus(c *gin.Context) {
	summary, ok := h.Sweeps.LastSweep()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(NewSweepDTO(summary)))
}

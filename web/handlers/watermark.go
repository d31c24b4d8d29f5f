package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
	"axiapac.com/punchsync/web/common"
	"axiapac.com/punchsync/web/middlewares"
)

type WatermarkRequest struct {
	LastSyncDate string `json:"last_sync_date" binding:"required"`
}

func (h *Handlers) GetWatermark(c *gin.Context) {
	wm, err := h.Watermark.Read(c.Request.Context())
	if errors.Is(err, core.ErrConfig) {
		c.JSON(http.StatusNotFound, common.NewCategorizedError(core.Category(err), err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(model.Watermark{
		LastSyncDate: wm.In(h.zone()).Format(utils.ISOLayout),
	}))
}

// PutWatermark seeds or rewinds the watermark. Timestamps without an offset
// are read in the sync zone.
func (h *Handlers) PutWatermark(c *gin.Context) {
	var req WatermarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	t, err := utils.ParseLocalTime(req.LastSyncDate, h.zone())
	if err != nil {
		if t, err = parseDate(req.LastSyncDate, h); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}
	}

	if err := h.Watermark.Reset(c.Request.Context(), *t); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	wm := model.Watermark{LastSyncDate: t.In(h.zone()).Format(utils.ISOLayout)}
	identity, _ := middlewares.Identity(c)
	h.logger().Warn("watermark reset by operator", "operator", identity.Name, "last_sync_date", wm.LastSyncDate)
	c.JSON(http.StatusOK, common.NewSuccessResponse(wm))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"axiapac.com/punchsync/web/common"
)

func (h *Handlers) GetSnapshot(c *gin.Context) {
	snap, ok := h.Snapshots.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, common.NewErrorResponse("no snapshot written yet"))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(snap))
}

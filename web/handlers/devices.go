package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
	"axiapac.com/punchsync/web/common"
)

type DeviceSource func() []model.DeviceDescriptor

// DeviceDTO leaves out the terminal password.
type DeviceDTO struct {
	IP             string `json:"device_ip"`
	Port           int    `json:"port"`
	Username       string `json:"device_user_name"`
	OrganizationID string `json:"organization_id"`
}

func (h *Handlers) ListDevices(c *gin.Context) {
	var devices []model.DeviceDescriptor
	if h.Devices != nil {
		devices = h.Devices()
	}
	c.JSON(http.StatusOK, common.NewListResponse(utils.Map(devices, func(d model.DeviceDescriptor) DeviceDTO {
		return DeviceDTO{IP: d.IP, Port: d.Port, Username: d.Username, OrganizationID: d.OrganizationID}
	})))
}

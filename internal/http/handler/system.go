package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type SystemHandler struct {
	version string
}

func NewSystemHandler(version string) *SystemHandler {
	return &SystemHandler{version: version}
}

func (h *SystemHandler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"version": h.version})
}

func (h *SystemHandler) Hello(c echo.Context) error {
	return c.String(http.StatusOK, msgHelloWorld)
}

func (h *SystemHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

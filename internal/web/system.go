package web

import (
	"net/http"
	"os"
	"runtime"

	"github.com/bowerhall/faqdesk/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type systemResponse struct {
	Hostname   string  `json:"hostname"`
	OS         string  `json:"os"`
	Arch       string  `json:"arch"`
	Goroutines int     `json:"goroutines"`
	Sessions   int     `json:"sessions"`
	CPUUsage   float64 `json:"cpu_usage"`
	MemTotal   uint64  `json:"mem_total"`
	MemUsed    uint64  `json:"mem_used"`
	MemUsage   float64 `json:"mem_usage"`
	DiskUsed   uint64  `json:"disk_used"`
	DiskFree   uint64  `json:"disk_free"`
}

// System reports host load next to the number of live chat sessions.
// Probe failures leave the corresponding fields zero.
func (s *Server) System(c echo.Context) error {
	hostname, _ := os.Hostname()

	resp := systemResponse{
		Hostname:   hostname,
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Goroutines: runtime.NumGoroutine(),
		Sessions:   s.agent.Sessions().Len(),
	}

	ctx := c.Request().Context()

	// interval 0 compares against the previous call instead of blocking
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		resp.CPUUsage = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		resp.MemTotal = vm.Total
		resp.MemUsed = vm.Used
		resp.MemUsage = vm.UsedPercent
	} else {
		logger.Debug("memory probe failed", "error", err)
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		resp.DiskUsed = du.Used
		resp.DiskFree = du.Free
	} else {
		logger.Debug("disk probe failed", "error", err)
	}

	return c.JSON(http.StatusOK, resp)
}

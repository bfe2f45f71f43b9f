package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfoResponse is the GET /api/system/info payload.
type SystemInfoResponse struct {
	GoVersion     string  `json:"go_version"`
	NumGoroutine  int     `json:"num_goroutine"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskFreeGB    float64 `json:"disk_free_gb"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

var startTime = time.Now()

// HandleSystemInfo reports process and host resource usage.
func (h *Handlers) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}
	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	resp := SystemInfoResponse{
		GoVersion:     runtime.Version(),
		NumGoroutine:  runtime.NumGoroutine(),
		CPUPercent:    cpuAvg,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		resp.MemoryPercent = memStat.UsedPercent
		resp.MemoryUsedMB = float64(memStat.Used) / 1024 / 1024
	}

	if diskStat, err := disk.Usage("/"); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		resp.DiskPercent = diskStat.UsedPercent
		resp.DiskFreeGB = float64(diskStat.Free) / 1024 / 1024 / 1024
	}

	h.writeJSON(w, http.StatusOK, resp)
}

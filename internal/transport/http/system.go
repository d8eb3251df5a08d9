package httptransport

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

func (s *Service) handleSystem(c *gin.Context) {
	data := gin.H{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		data["memory"] = gin.H{
			"total":        vm.Total,
			"used":         vm.Used,
			"used_percent": vm.UsedPercent,
		}
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		data["cpu_percent"] = percents[0]
	}
	if info, err := host.Info(); err == nil {
		data["host"] = gin.H{
			"hostname": info.Hostname,
			"os":       info.OS,
			"platform": info.Platform,
		}
	}

	if stats, err := s.issuer.Stats(c.Request.Context()); err == nil {
		data["store"] = stats
	}

	RespondSuccess(c, http.StatusOK, data, "")
}

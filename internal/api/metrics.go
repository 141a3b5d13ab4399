package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats снимок ресурсов процесса сервера
type ProcessStats struct {
	RSSMB      float64 `json:"rss_mb"`
	HeapMB     float64 `json:"heap_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	SystemCPU  float64 `json:"system_cpu_percent"`
	Goroutines int     `json:"goroutines"`
	NumGC      uint32  `json:"num_gc"`
}

// processSampler читает метрики текущего процесса через gopsutil
type processSampler struct {
	proc *process.Process
}

func newProcessSampler() *processSampler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &processSampler{}
	}
	return &processSampler{proc: proc}
}

// Sample собирает статистику. Недоступные на платформе значения остаются нулевыми.
func (ps *processSampler) Sample() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	st := ProcessStats{
		HeapMB:     toMB(m.HeapAlloc),
		Goroutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
	}

	if ps.proc != nil {
		if mem, err := ps.proc.MemoryInfo(); err == nil {
			st.RSSMB = toMB(mem.RSS)
		}
		if pct, err := ps.proc.CPUPercent(); err == nil {
			st.CPUPercent = pct
		}
	}
	// Без интервала берется значение с момента предыдущего вызова
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		st.SystemCPU = pcts[0]
	}
	return st
}

func toMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}

// formatUptime возвращает время работы в виде "1д 2ч 3м 4с"
func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

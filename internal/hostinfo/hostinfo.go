// Package hostinfo samples the machine the game host runs on for the admin
// status panel.
package hostinfo

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time view of host resource usage.
type Snapshot struct {
	Hostname       string  `json:"hostname"`
	UptimeSeconds  uint64  `json:"uptimeSeconds"`
	Processes      uint64  `json:"processes"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	MemUsedMB      uint64  `json:"memUsedMb"`
	MemTotalMB     uint64  `json:"memTotalMb"`
}

// Collect gathers a Snapshot. Individual probes that fail leave their fields
// zeroed rather than failing the whole call; the panel shows what it can.
func Collect() Snapshot {
	var snap Snapshot

	if info, err := host.Info(); err == nil {
		snap.Hostname = info.Hostname
		snap.UptimeSeconds = info.Uptime
		snap.Processes = info.Procs
	}

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		snap.CPUPercent = pcts[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemUsedPercent = vm.UsedPercent
		snap.MemUsedMB = vm.Used / (1024 * 1024)
		snap.MemTotalMB = vm.Total / (1024 * 1024)
	}

	return snap
}

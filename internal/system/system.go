// Package system reports device health for the status endpoint.
package system

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status is a point-in-time snapshot of the device: memory, load, and
// how full the storage mount is.
type Status struct {
	Hostname   string `json:"hostname"`
	UptimeSecs uint64 `json:"uptime_seconds"`

	CPUPercent float64 `json:"cpu_percent"`
	LoadAvg1   float64 `json:"load_avg_1"`
	LoadAvg5   float64 `json:"load_avg_5"`
	LoadAvg15  float64 `json:"load_avg_15"`

	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryPercent float64 `json:"memory_percent"`

	DiskTotal   uint64  `json:"disk_total"`
	DiskUsed    uint64  `json:"disk_used"`
	DiskFree    uint64  `json:"disk_free"`
	DiskPercent float64 `json:"disk_percent"`
}

// GetStatus collects the current device status. mount is the storage
// root whose usage is reported; collectors that fail leave their
// fields zero rather than failing the whole snapshot.
func GetStatus(mount string) *Status {
	s := &Status{}

	if info, err := host.Info(); err == nil {
		s.Hostname = info.Hostname
		s.UptimeSecs = info.Uptime
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}
	if avg, err := load.Avg(); err == nil {
		s.LoadAvg1 = avg.Load1
		s.LoadAvg5 = avg.Load5
		s.LoadAvg15 = avg.Load15
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryTotal = vm.Total
		s.MemoryUsed = vm.Used
		s.MemoryPercent = vm.UsedPercent
	}
	if du, err := disk.Usage(mount); err == nil {
		s.DiskTotal = du.Total
		s.DiskUsed = du.Used
		s.DiskFree = du.Free
		s.DiskPercent = du.UsedPercent
	}

	return s
}

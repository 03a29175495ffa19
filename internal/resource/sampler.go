// Package resource samples host CPU/RAM/GPU utilization and static hardware
// descriptors for a Benchmark Run. Every public operation degrades to a nil
// or zero value on failure rather than propagating an error to the caller.
package resource

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/llm-bench/engine/internal/logging"
	"github.com/llm-bench/engine/pkg/models"
)

// Sampler reads point-in-time CPU/RAM/GPU utilization and static hardware
// descriptors. The zero value is ready to use.
type Sampler struct {
	// gpuQuery is overridable in tests; production code shells out to
	// nvidia-smi.
	gpuQuery func(ctx context.Context) (*float64, error)
}

// New returns a Sampler wired to query GPU utilization via nvidia-smi.
func New() *Sampler {
	return &Sampler{gpuQuery: queryNvidiaSMIUtilization}
}

// Sample returns current CPU/RAM/GPU load. Any individual metric that
// cannot be read is left nil; the overall call never fails.
func (s *Sampler) Sample(ctx context.Context) models.ResourceSample {
	sample := models.ResourceSample{}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		v := pct[0]
		sample.CPU = &v
	} else if err != nil {
		logging.Warn(ctx, "resource sampler: cpu read failed", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
		v := vm.UsedPercent
		sample.RAM = &v
	} else if err != nil {
		logging.Warn(ctx, "resource sampler: mem read failed", "error", err)
	}

	if s.gpuQuery != nil {
		if gpu, err := s.gpuQuery(ctx); err == nil {
			sample.GPU = gpu
		} else {
			logging.Debug(ctx, "resource sampler: gpu read unavailable", "error", err)
		}
	}

	return sample
}

// HardwareInfo captures a static, best-effort hardware descriptor. Any
// field that cannot be determined is left at its zero value.
func (s *Sampler) HardwareInfo(ctx context.Context) models.HardwareInfo {
	info := models.HardwareInfo{
		OSArch: runtime.GOARCH,
	}

	if cpuInfo, err := cpu.InfoWithContext(ctx); err == nil && len(cpuInfo) > 0 {
		info.CPUVendor = cpuInfo[0].VendorID
		info.CPUModel = cpuInfo[0].ModelName
	} else if err != nil {
		logging.Warn(ctx, "resource sampler: cpu info read failed", "error", err)
	}

	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.CPUPhysical = physical
	}
	if logical, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPULogical = logical
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.RAMTotalBytes = vm.Total
	} else {
		logging.Warn(ctx, "resource sampler: mem info read failed", "error", err)
	}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		info.OSPlatform = hostInfo.Platform
		info.OSRelease = hostInfo.PlatformVersion
	} else {
		logging.Warn(ctx, "resource sampler: host info read failed", "error", err)
	}

	if model, vram, err := queryNvidiaSMIDescriptor(ctx); err == nil {
		info.GPUModel = model
		info.GPUVRAMBytes = vram
	} else {
		logging.Debug(ctx, "resource sampler: gpu descriptor unavailable", "error", err)
	}

	return info
}

// queryNvidiaSMIUtilization shells out to nvidia-smi for the first GPU
// controller's utilization percentage. Returns an error (never a zero
// value masquerading as a reading) when no GPU or no driver is present.
func queryNvidiaSMIUtilization(ctx context.Context) (*float64, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=utilization.gpu", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, exec.ErrNotFound
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(lines[0]), 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryNvidiaSMIDescriptor returns the first GPU's model name and VRAM
// capacity in bytes.
func queryNvidiaSMIDescriptor(ctx context.Context) (string, uint64, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return "", 0, err
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return "", 0, exec.ErrNotFound
	}

	fields := strings.Split(lines[0], ",")
	if len(fields) != 2 {
		return "", 0, exec.ErrNotFound
	}

	name := strings.TrimSpace(fields[0])
	mib, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return name, 0, nil
	}
	return name, mib * 1024 * 1024, nil
}

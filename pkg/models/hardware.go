package models

// HardwareInfo describes the hardware a run executed on. Captured once per
// run by the Resource Sampler; any missing field is left at its zero value.
type HardwareInfo struct {
	CPUVendor     string `json:"cpu_vendor,omitempty"`
	CPUModel      string `json:"cpu_model,omitempty"`
	CPUPhysical   int    `json:"cpu_physical_cores,omitempty"`
	CPULogical    int    `json:"cpu_logical_cores,omitempty"`
	RAMTotalBytes uint64 `json:"ram_total_bytes,omitempty"`
	GPUModel      string `json:"gpu_model,omitempty"`
	GPUVRAMBytes  uint64 `json:"gpu_vram_bytes,omitempty"`
	OSPlatform    string `json:"os_platform,omitempty"`
	OSRelease     string `json:"os_release,omitempty"`
	OSArch        string `json:"os_arch,omitempty"`
}

// CostEstimate is a non-persisted reporting shape for the cost of a
// completed Result. Nothing in the engine computes one, and Config has no
// hardware price setting.
type CostEstimate struct {
	ModelID              string  `json:"model_id"`
	TokensPerDollar      float64 `json:"tokens_per_dollar"`
	CostPerMillionTokens float64 `json:"cost_per_million_tokens"`
}

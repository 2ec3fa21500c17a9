package cpu

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"
)

// Info describes the host processor backing CPU contexts.
type Info struct {
	Brand         string
	PhysicalCores int
	LogicalCores  int
	AVX2          bool
	AVX512        bool
}

// HostInfo reports the detected processor features.
func HostInfo() Info {
	return Info{
		Brand:         cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:        cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
}

// String formats the info for logs.
func (i Info) String() string {
	brand := i.Brand
	if brand == "" {
		brand = "unknown CPU"
	}
	return fmt.Sprintf("%s (%d physical / %d logical cores, avx2=%t, avx512=%t)",
		brand, i.PhysicalCores, i.LogicalCores, i.AVX2, i.AVX512)
}

// Workers returns the number of goroutines the backend splits kernels over.
func (cpu *CPUBackend) Workers() int {
	if !cpu.parallel.Enabled {
		return 1
	}
	return cpu.parallel.NumWorkers
}

package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using the running host.
type RealDetector struct {
	goos   string
	goarch string
}

// NewDetector creates a detector for the running host.
func NewDetector() Detector {
	return &RealDetector{goos: runtime.GOOS, goarch: runtime.GOARCH}
}

// Detect maps runtime.GOOS/GOARCH to enumerated keys and, on Linux,
// fills in distribution details using gopsutil.
//
// Distribution detection is best effort: if gopsutil fails, the distro
// fields stay empty and Detect still succeeds. Only context
// cancellation is reported as an error.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := FromGo(d.goos, d.goarch)
	if !info.IsLinux() {
		return info, nil
	}

	distro, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	distro = normalizePlatform(distro)
	if distro != "" {
		info.Distro = distro
		info.Family = mapFamily(family)
		info.Version = normalizePlatform(version)
	}

	return info, nil
}

// FromGo builds an Info for an arbitrary GOOS/GOARCH pair without
// touching the host.
func FromGo(goos, goarch string) *Info {
	return &Info{
		Platform: PlatformFor(goos),
		Arch:     ArchFor(goarch),
		GOOS:     goos,
		GOARCH:   goarch,
	}
}

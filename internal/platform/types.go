// Package platform answers "what host are we installing onto?".
//
// The raw runtime.GOOS/GOARCH strings never leave this package: callers
// get an enumerated PlatformKey and ArchKey, so the download tables in
// package binary are isolated from OS-string drift. On Linux the
// distribution is detected with gopsutil for logging and for the Lua
// configuration's platform table; detection failures fall back to
// OS/arch only.
package platform

import "context"

// PlatformKey identifies an operating system family for asset lookup.
type PlatformKey string

const (
	PlatformWindows PlatformKey = "windows"
	PlatformMacOS   PlatformKey = "macos"
	PlatformLinux   PlatformKey = "linux"
	// PlatformDefault covers every OS without a dedicated entry.
	PlatformDefault PlatformKey = "default"
)

// String returns the key as used in asset tables and log output.
func (p PlatformKey) String() string {
	return string(p)
}

// ArchKey identifies a CPU architecture for asset lookup.
type ArchKey string

const (
	ArchX64   ArchKey = "x64"
	ArchARM64 ArchKey = "arm64"
	ArchIA32  ArchKey = "ia32"
	// ArchUnknown is returned for architectures without a key.
	ArchUnknown ArchKey = ""
)

// String returns the key, or "unknown" for ArchUnknown.
func (a ArchKey) String() string {
	if a == ArchUnknown {
		return "unknown"
	}
	return string(a)
}

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	Platform PlatformKey
	Arch     ArchKey
	GOOS     string // raw runtime.GOOS
	GOARCH   string // raw runtime.GOARCH
	Distro   string // distro ID (Linux only, e.g., "ubuntu")
	Family   string // canonical family (e.g., "debian")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// IsWindows reports whether the host is Windows.
func (i *Info) IsWindows() bool {
	return i.Platform == PlatformWindows
}

// IsMacOS reports whether the host is macOS.
func (i *Info) IsMacOS() bool {
	return i.Platform == PlatformMacOS
}

// IsLinux reports whether the host is Linux.
func (i *Info) IsLinux() bool {
	return i.Platform == PlatformLinux
}

// HasDistro reports whether Linux distribution details were detected.
func (i *Info) HasDistro() bool {
	return i.IsLinux() && i.Distro != ""
}

// String renders the host as "<platform>/<arch>".
func (i *Info) String() string {
	return i.Platform.String() + "/" + i.Arch.String()
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

package platform

import (
	"strings"
)

// familyMap maps distribution names to their canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
}

// PlatformFor maps a GOOS value to its PlatformKey.
func PlatformFor(goos string) PlatformKey {
	switch goos {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMacOS
	case "linux":
		return PlatformLinux
	default:
		return PlatformDefault
	}
}

// ArchFor maps a GOARCH (or uname-style) value to its ArchKey.
// Architectures without a key map to ArchUnknown rather than failing;
// the installer falls back to a source build for them.
func ArchFor(goarch string) ArchKey {
	switch goarch {
	case "amd64", "x86_64":
		return ArchX64
	case "arm64", "aarch64":
		return ArchARM64
	case "386", "i386", "i686":
		return ArchIA32
	default:
		return ArchUnknown
	}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}
	return FamilyUnknown
}

package binary

import (
	"fmt"

	"github.com/jqinstall/jq-install/internal/platform"
)

// BinaryName returns the canonical local executable name for a platform.
func BinaryName(p platform.PlatformKey) string {
	switch p {
	case platform.PlatformWindows:
		return "jq.exe"
	default:
		return "jq"
	}
}

// AssetName returns the prebuilt release asset for a platform/arch pair.
// ok is false when no prebuilt asset exists and a source build is needed.
func AssetName(p platform.PlatformKey, a platform.ArchKey) (name string, ok bool) {
	switch p {
	case platform.PlatformWindows:
		switch a {
		case platform.ArchX64:
			return "jq-windows-amd64.exe", true
		case platform.ArchIA32:
			return "jq-windows-i386.exe", true
		}
	case platform.PlatformMacOS:
		switch a {
		case platform.ArchX64:
			return "jq-macos-amd64", true
		case platform.ArchARM64:
			return "jq-macos-arm64", true
		}
	case platform.PlatformLinux:
		switch a {
		case platform.ArchX64:
			return "jq-linux-amd64", true
		case platform.ArchIA32:
			return "jq-linux-i386", true
		case platform.ArchARM64:
			return "jq-linux-arm64", true
		}
	}
	return "", false
}

// Pair is a platform/architecture combination.
type Pair struct {
	Platform platform.PlatformKey
	Arch     platform.ArchKey
}

// SupportedPairs lists every pair with a prebuilt asset.
func SupportedPairs() []Pair {
	var pairs []Pair
	for _, p := range []platform.PlatformKey{platform.PlatformWindows, platform.PlatformMacOS, platform.PlatformLinux} {
		for _, a := range []platform.ArchKey{platform.ArchX64, platform.ArchARM64, platform.ArchIA32} {
			if _, ok := AssetName(p, a); ok {
				pairs = append(pairs, Pair{Platform: p, Arch: a})
			}
		}
	}
	return pairs
}

// constructDownloadInfo resolves which artifact to fetch for a host.
func constructDownloadInfo(release ReleaseInfo, platformInfo *platform.Info) (*DownloadInfo, error) {
	if platformInfo == nil {
		return nil, fmt.Errorf("platform info is required")
	}

	info := &DownloadInfo{
		Platform:   platformInfo.Platform,
		Arch:       platformInfo.Arch,
		BinaryName: BinaryName(platformInfo.Platform),
	}

	if asset, ok := AssetName(platformInfo.Platform, platformInfo.Arch); ok {
		info.Mode = ModeBinary
		info.Asset = asset
		info.URL = release.AssetURL(asset)
		return info, nil
	}

	info.Mode = ModeSource
	info.Asset = release.SourceArchiveName()
	info.URL = release.SourceURL()
	return info, nil
}

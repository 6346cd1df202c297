package binary

import (
	"fmt"
	"time"

	"github.com/jqinstall/jq-install/internal/config"
	"github.com/jqinstall/jq-install/internal/platform"
)

// ReleaseInfo describes the upstream release being installed.
type ReleaseInfo struct {
	Name             string
	BaseURL          string // ends in "/"
	Version          string // release tag, e.g. "jq-1.7.1"
	SignatureBaseURL string // ends in "/"
	ChecksumFile     string
}

// DefaultRelease is the pinned jq release.
var DefaultRelease = ReleaseInfo{
	Name:             config.DefaultName,
	BaseURL:          config.DefaultBaseURL,
	Version:          config.DefaultVersion,
	SignatureBaseURL: config.DefaultSignatureBaseURL,
	ChecksumFile:     config.DefaultChecksumFile,
}

// ReleaseFromConfig extracts the release fields of a resolved configuration.
func ReleaseFromConfig(cfg *config.Config) ReleaseInfo {
	return ReleaseInfo{
		Name:             cfg.Name,
		BaseURL:          cfg.BaseURL,
		Version:          cfg.Version,
		SignatureBaseURL: cfg.SignatureBaseURL,
		ChecksumFile:     cfg.ChecksumFile,
	}
}

// AssetURL returns <base><version>/<asset>.
func (r ReleaseInfo) AssetURL(asset string) string {
	return r.BaseURL + r.Version + "/" + asset
}

// SourceURL returns the source tarball URL, <base><version>/<version>.tar.gz.
func (r ReleaseInfo) SourceURL() string {
	return r.AssetURL(r.SourceArchiveName())
}

// SourceArchiveName is the file name of the source tarball.
func (r ReleaseInfo) SourceArchiveName() string {
	return r.Version + ".tar.gz"
}

// ChecksumURL returns the URL of the release checksum file.
func (r ReleaseInfo) ChecksumURL() string {
	return r.AssetURL(r.ChecksumFile)
}

// SignatureURL returns the detached signature URL for an asset,
// <sigbase>v<semver>/<asset>.asc.
func (r ReleaseInfo) SignatureURL(asset string) (string, error) {
	v, err := config.ParseVersionTag(r.Name, r.Version)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sv%s/%s.asc", r.SignatureBaseURL, v, asset), nil
}

// Mode says how the binary is obtained.
type Mode int

const (
	// ModeBinary downloads a prebuilt executable.
	ModeBinary Mode = iota
	// ModeSource downloads the source tarball and builds it.
	ModeSource
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeBinary:
		return "binary"
	case ModeSource:
		return "source"
	default:
		return "unknown"
	}
}

// DownloadInfo contains everything needed to fetch the binary for one host.
type DownloadInfo struct {
	Mode       Mode
	Platform   platform.PlatformKey
	Arch       platform.ArchKey
	Asset      string // remote file name
	URL        string // asset or source tarball URL
	BinaryName string // canonical local file name
}

// Outcome reports what Install did.
type Outcome int

const (
	// OutcomeAlreadyInstalled means a file existed at the canonical path.
	OutcomeAlreadyInstalled Outcome = iota
	// OutcomeSkipped means the skip flag was set.
	OutcomeSkipped
	// OutcomePlanned means a dry run resolved the plan and stopped.
	OutcomePlanned
	// OutcomeDownloaded means a prebuilt binary was installed.
	OutcomeDownloaded
	// OutcomeBuilt means the binary was compiled from source.
	OutcomeBuilt
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyInstalled:
		return "already-installed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomePlanned:
		return "planned"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeBuilt:
		return "built"
	default:
		return "unknown"
	}
}

// VerificationMethod indicates how an artifact was verified
type VerificationMethod int

const (
	// VerificationNone indicates the artifact was not verified
	VerificationNone VerificationMethod = iota
	// VerificationGPG indicates GPG signature verification was used
	VerificationGPG
	// VerificationSHA256 indicates SHA256 checksum verification was used
	VerificationSHA256
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// VerificationResult contains the outcome of a verification attempt
type VerificationResult struct {
	Method  VerificationMethod
	Success bool
	Error   error
}

// Result describes a finished Install call.
type Result struct {
	Outcome  Outcome
	Path     string // canonical binary path
	Plan     *DownloadInfo
	Verified VerificationMethod
	Duration time.Duration
}

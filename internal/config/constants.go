package config

import "time"

const (
	// EnvSkipInstall skips installation entirely when set to exactly "true".
	EnvSkipInstall = "NODE_JQ_SKIP_INSTALL_BINARY"

	// EnvConfigFile names an optional Lua configuration file.
	EnvConfigFile = "JQ_INSTALL_CONFIG"
)

const (
	// DefaultName is the tool being installed.
	DefaultName = "jq"

	// DefaultBaseURL is the release download root. Asset URLs are
	// <base><version>/<asset>.
	DefaultBaseURL = "https://github.com/jqlang/jq/releases/download/"

	// DefaultVersion is the pinned release tag.
	DefaultVersion = "jq-1.7.1"

	// DefaultSignatureBaseURL hosts detached .asc signatures, laid out as
	// <base>v<semver>/<asset>.asc.
	DefaultSignatureBaseURL = "https://raw.githubusercontent.com/jqlang/jq/master/sig/"

	// DefaultChecksumFile is the checksum asset published with each release.
	DefaultChecksumFile = "sha256sum.txt"

	// DefaultOutputDirName is the directory under the package root that
	// receives the binary.
	DefaultOutputDirName = "bin"

	// DefaultJobs is the make -j parallelism for source builds.
	DefaultJobs = 8

	// DefaultProgressInterval throttles download progress notifications.
	DefaultProgressInterval = time.Second
)

const (
	// MaxJobs bounds make -j.
	MaxJobs = 256

	// MaxRetries bounds download retries.
	MaxRetries = 10

	// MaxConfigFileSize bounds the Lua configuration file.
	MaxConfigFileSize = 64 * 1024
)

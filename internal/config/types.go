package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver"
)

// VerifyMode selects how a downloaded artifact is checked before install.
type VerifyMode string

const (
	// VerifyNone trusts the transport, matching the historical behavior.
	VerifyNone VerifyMode = "none"
	// VerifySHA256 checks the release's sha256sum.txt.
	VerifySHA256 VerifyMode = "sha256"
	// VerifyGPG checks a detached signature against jq's release keys or a
	// configured keyring.
	VerifyGPG VerifyMode = "gpg"
)

// ParseVerifyMode parses a verify mode name. The empty string means none.
func ParseVerifyMode(s string) (VerifyMode, error) {
	switch VerifyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", VerifyNone:
		return VerifyNone, nil
	case VerifySHA256:
		return VerifySHA256, nil
	case VerifyGPG:
		return VerifyGPG, nil
	default:
		return "", fmt.Errorf("unknown verify mode %q (want none, sha256 or gpg)", s)
	}
}

// Config holds every installer setting after all layers are applied.
type Config struct {
	// OutputDir receives the canonical binary.
	OutputDir string

	// SkipInstall stops before any network activity.
	SkipInstall bool

	// Release identification
	Name             string
	BaseURL          string
	Version          string
	SignatureBaseURL string
	ChecksumFile     string

	// Verification
	Verify      VerifyMode
	KeyringPath string

	// Transport
	Retries          int
	Timeout          time.Duration // zero means no timeout
	ProgressInterval time.Duration

	// Source build parallelism; zero means one job per logical CPU.
	Jobs int

	// ConfigFile is the Lua file that was applied, if any.
	ConfigFile string
}

// Default returns the built-in configuration for a package rooted at
// packageRoot.
func Default(packageRoot string) *Config {
	return &Config{
		OutputDir:        filepath.Join(packageRoot, DefaultOutputDirName),
		Name:             DefaultName,
		BaseURL:          DefaultBaseURL,
		Version:          DefaultVersion,
		SignatureBaseURL: DefaultSignatureBaseURL,
		ChecksumFile:     DefaultChecksumFile,
		Verify:           VerifyNone,
		ProgressInterval: DefaultProgressInterval,
		Jobs:             DefaultJobs,
	}
}

// Overrides is a partial Config produced by a configuration layer.
// Nil fields leave the underlying value untouched.
type Overrides struct {
	OutputDir        *string
	SkipInstall      *bool
	BaseURL          *string
	Version          *string
	SignatureBaseURL *string
	Verify           *VerifyMode
	KeyringPath      *string
	Retries          *int
	Timeout          *time.Duration
	Jobs             *int
}

// Apply copies every non-nil override onto c.
func (c *Config) Apply(o *Overrides) {
	if o == nil {
		return
	}
	if o.OutputDir != nil {
		c.OutputDir = *o.OutputDir
	}
	if o.SkipInstall != nil {
		c.SkipInstall = *o.SkipInstall
	}
	if o.BaseURL != nil {
		c.BaseURL = *o.BaseURL
	}
	if o.Version != nil {
		c.Version = *o.Version
	}
	if o.SignatureBaseURL != nil {
		c.SignatureBaseURL = *o.SignatureBaseURL
	}
	if o.Verify != nil {
		c.Verify = *o.Verify
	}
	if o.KeyringPath != nil {
		c.KeyringPath = *o.KeyringPath
	}
	if o.Retries != nil {
		c.Retries = *o.Retries
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.Jobs != nil {
		c.Jobs = *o.Jobs
	}
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return &ValidationError{Field: "output_dir", Message: "cannot be empty"}
	}

	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}

	if err := validateBaseURL(c.BaseURL); err != nil {
		return &ValidationError{Field: "url", Message: err.Error()}
	}

	if _, err := ParseVersionTag(c.Name, c.Version); err != nil {
		return &ValidationError{Field: "version", Message: err.Error()}
	}

	if _, err := ParseVerifyMode(string(c.Verify)); err != nil {
		return &ValidationError{Field: "verify", Message: err.Error()}
	}

	if c.Verify == VerifyGPG {
		if err := validateBaseURL(c.SignatureBaseURL); err != nil {
			return &ValidationError{Field: "signature_url", Message: err.Error()}
		}
	}

	if c.Jobs < 0 || c.Jobs > MaxJobs {
		return &ValidationError{
			Field:   "jobs",
			Message: fmt.Sprintf("must be between 0 and %d, got %d", MaxJobs, c.Jobs),
		}
	}

	if c.Retries < 0 || c.Retries > MaxRetries {
		return &ValidationError{
			Field:   "retries",
			Message: fmt.Sprintf("must be between 0 and %d, got %d", MaxRetries, c.Retries),
		}
	}

	if c.Timeout < 0 {
		return &ValidationError{Field: "timeout", Message: "cannot be negative"}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// ParseVersionTag parses a release tag such as "jq-1.7.1" into a semantic
// version. The "<name>-" and "v" prefixes are optional.
func ParseVersionTag(name, tag string) (semver.Version, error) {
	if tag == "" {
		return semver.Version{}, fmt.Errorf("version tag cannot be empty")
	}

	raw := strings.TrimPrefix(tag, name+"-")
	raw = strings.TrimPrefix(raw, "v")

	v, err := semver.ParseTolerant(raw)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid version tag %q: %w", tag, err)
	}
	return v, nil
}

// validateBaseURL requires an absolute http(s) URL ending in a slash, so
// that "<base><version>/..." concatenation stays well formed.
func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported scheme %q (want http or https)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}

	if !strings.HasSuffix(u.Path, "/") {
		return fmt.Errorf("must end with '/': %q", raw)
	}

	return nil
}

package binary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jqinstall/jq-install/internal/config"
	"github.com/jqinstall/jq-install/internal/lock"
	"github.com/jqinstall/jq-install/internal/platform"
)

// Config holds configuration for the installer
type Config struct {
	// OutputDir receives the canonical binary (<package-root>/bin)
	OutputDir string
	// Release identifies the upstream release
	Release ReleaseInfo
	// PlatformInfo contains the host's platform and architecture keys
	PlatformInfo *platform.Info
	// SkipInstall stops before any network activity
	SkipInstall bool
	// DryRun resolves the plan and stops before any network activity
	DryRun bool
	// Downloader fetches artifacts; a default one is created when nil
	Downloader *Downloader
	// Verifier checks artifacts; verification is off when nil
	Verifier *Verifier
	// Builder compiles the source fallback; a default one is created when nil
	Builder *Builder
	// Logger receives status messages
	Logger config.Logger
}

// Installer fetches or builds the binary into the output directory.
type Installer struct {
	outputDir    string
	release      ReleaseInfo
	platformInfo *platform.Info
	skipInstall  bool
	dryRun       bool
	downloader   *Downloader
	verifier     *Verifier
	builder      *Builder
	extractor    *Extractor
	logger       config.Logger

	// rename moves the downloaded asset to the canonical path.
	rename func(oldpath, newpath string) error
}

// NewInstaller creates a new installer
func NewInstaller(cfg Config) (*Installer, error) {
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("OutputDir is required")
	}

	if cfg.PlatformInfo == nil {
		return nil, fmt.Errorf("PlatformInfo is required")
	}

	if cfg.Release.BaseURL == "" || cfg.Release.Version == "" {
		return nil, fmt.Errorf("Release base URL and version are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = config.NopLogger()
	}

	downloader := cfg.Downloader
	if downloader == nil {
		downloader = NewDownloader(DownloaderConfig{Logger: logger})
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = NewVerifier(config.VerifyNone, "")
	}
	if verifier.Mode() == config.VerifyGPG {
		if _, err := verifier.Keyring(); err != nil {
			return nil, fmt.Errorf("load keyring: %w", err)
		}
	}

	builder := cfg.Builder
	if builder == nil {
		builder = NewBuilder(nil, config.DefaultJobs, logger)
	}

	return &Installer{
		outputDir:    cfg.OutputDir,
		release:      cfg.Release,
		platformInfo: cfg.PlatformInfo,
		skipInstall:  cfg.SkipInstall,
		dryRun:       cfg.DryRun,
		downloader:   downloader,
		verifier:     verifier,
		builder:      builder,
		extractor:    NewExtractor(),
		logger:       logger,
		rename:       os.Rename,
	}, nil
}

// BinaryPath returns the canonical path of the installed binary.
func (i *Installer) BinaryPath() string {
	return filepath.Join(i.outputDir, BinaryName(i.platformInfo.Platform))
}

// IsInstalled reports whether anything exists at the canonical path.
// Contents and version are not checked.
func (i *Installer) IsInstalled() bool {
	_, err := os.Stat(i.BinaryPath())
	return err == nil
}

// Plan resolves which artifact would be fetched for this host.
func (i *Installer) Plan() (*DownloadInfo, error) {
	return constructDownloadInfo(i.release, i.platformInfo)
}

// Install runs the installation: ensure the output directory, stop if the
// binary is present or installation is skipped, then download the
// prebuilt asset or build from source.
func (i *Installer) Install(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Path: i.BinaryPath()}

	if err := i.ensureOutputDir(); err != nil {
		return nil, err
	}

	if i.IsInstalled() {
		i.logger.Info("jq is already installed", "path", result.Path)
		result.Outcome = OutcomeAlreadyInstalled
		return result, nil
	}

	if i.skipInstall {
		i.logger.Info("skipping the download of jq binary", "env", config.EnvSkipInstall)
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	plan, err := i.Plan()
	if err != nil {
		return nil, fmt.Errorf("resolve download: %w", err)
	}
	result.Plan = plan

	if i.dryRun {
		i.logger.Info("dry run, nothing downloaded",
			"platform", plan.Platform, "arch", plan.Arch, "mode", plan.Mode, "url", plan.URL, "dest", result.Path)
		result.Outcome = OutcomePlanned
		return result, nil
	}

	l, err := lock.Acquire(ctx, i.outputDir)
	if err != nil {
		return nil, fmt.Errorf("acquire install lock: %w", err)
	}
	defer func() {
		if err := l.Release(); err != nil {
			i.logger.Warn("release install lock", "error", err)
		}
	}()

	// Another installer may have finished while we waited for the lock.
	if i.IsInstalled() {
		i.logger.Info("jq is already installed", "path", result.Path)
		result.Outcome = OutcomeAlreadyInstalled
		return result, nil
	}

	switch plan.Mode {
	case ModeBinary:
		result.Verified, err = i.installBinary(ctx, plan)
		result.Outcome = OutcomeDownloaded
	case ModeSource:
		result.Verified, err = i.installFromSource(ctx, plan)
		result.Outcome = OutcomeBuilt
	default:
		err = fmt.Errorf("unknown install mode: %s", plan.Mode)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (i *Installer) ensureOutputDir() error {
	if _, err := os.Stat(i.outputDir); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat output dir: %w", err)
	}

	if err := os.MkdirAll(i.outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	i.logger.Info("output directory was created", "dir", i.outputDir)
	return nil
}

// installBinary downloads the prebuilt asset next to the canonical path,
// verifies it, renames it and marks it executable.
func (i *Installer) installBinary(ctx context.Context, plan *DownloadInfo) (VerificationMethod, error) {
	i.logger.Info("downloading jq", "url", plan.URL)

	assetPath, err := i.downloader.DownloadToDir(ctx, plan.URL, i.outputDir)
	if err != nil {
		return VerificationNone, fmt.Errorf("download binary: %w", err)
	}

	method, err := i.verify(ctx, assetPath, plan.Asset)
	if err != nil {
		os.Remove(assetPath)
		return VerificationNone, err
	}

	distPath := i.BinaryPath()
	if err := i.rename(assetPath, distPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return method, fmt.Errorf("rename %s: %w", plan.Asset, err)
		}
		i.logger.Warn("downloaded file disappeared before rename, permissions not set", "path", assetPath)
	} else if err := SetExecutable(distPath); err != nil {
		return method, err
	}

	i.logger.Info("downloaded jq", "dir", i.outputDir)
	return method, nil
}

// installFromSource downloads and extracts the source tarball into a
// scratch directory and builds it with bindir set to the output directory.
func (i *Installer) installFromSource(ctx context.Context, plan *DownloadInfo) (VerificationMethod, error) {
	i.logger.Info("no prebuilt binary for this host, building jq from source",
		"platform", plan.Platform, "arch", plan.Arch, "url", plan.URL)

	scratch, err := os.MkdirTemp("", "jq-install-*")
	if err != nil {
		return VerificationNone, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	tarball, err := i.downloader.DownloadToDir(ctx, plan.URL, scratch)
	if err != nil {
		return VerificationNone, fmt.Errorf("download source: %w", err)
	}

	method, err := i.verify(ctx, tarball, plan.Asset)
	if err != nil {
		return VerificationNone, err
	}

	srcDir := filepath.Join(scratch, "src")
	if err := i.extractor.ExtractTarGz(tarball, srcDir, 1); err != nil {
		return method, fmt.Errorf("extract source: %w", err)
	}

	prefix := filepath.Join(scratch, "prefix")
	if err := i.builder.Build(ctx, srcDir, prefix, i.outputDir); err != nil {
		return method, fmt.Errorf("build jq: %w", err)
	}

	if !fileExists(i.BinaryPath()) {
		return method, fmt.Errorf("%w: %s not produced by make install", ErrBuildFailed, i.BinaryPath())
	}

	i.logger.Info("jq installed successfully", "dir", i.outputDir)
	return method, nil
}

// verify fetches the material the verifier's mode needs into a scratch
// directory and checks artifactPath against it.
func (i *Installer) verify(ctx context.Context, artifactPath, asset string) (VerificationMethod, error) {
	mode := i.verifier.Mode()
	if mode == config.VerifyNone || mode == "" {
		return VerificationNone, nil
	}

	scratch, err := os.MkdirTemp("", "jq-verify-*")
	if err != nil {
		return VerificationNone, fmt.Errorf("create verify dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	var signaturePath, checksumPath string

	switch mode {
	case config.VerifySHA256:
		checksumPath, err = i.downloader.DownloadToDir(ctx, i.release.ChecksumURL(), scratch)
		if err != nil {
			return VerificationNone, fmt.Errorf("download checksums: %w", err)
		}
	case config.VerifyGPG:
		sigURL, err := i.release.SignatureURL(asset)
		if err != nil {
			return VerificationNone, fmt.Errorf("signature url: %w", err)
		}
		signaturePath, err = i.downloader.DownloadToDir(ctx, sigURL, scratch)
		if err != nil {
			return VerificationNone, fmt.Errorf("download signature: %w", err)
		}
	}

	result, err := i.verifier.VerifyFile(artifactPath, signaturePath, checksumPath)
	if err != nil {
		return VerificationNone, fmt.Errorf("verify %s: %w", asset, err)
	}

	i.logger.Info("verified download", "asset", asset, "method", result.Method)
	return result.Method, nil
}

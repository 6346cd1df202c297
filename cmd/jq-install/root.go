package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jqinstall/jq-install/internal/binary"
	"github.com/jqinstall/jq-install/internal/config"
	"github.com/jqinstall/jq-install/internal/platform"
)

// deps are the process-level inputs of the command, replaceable in tests.
type deps struct {
	getenv   func(string) string
	detector platform.Detector
}

func defaultDeps() deps {
	return deps{getenv: os.Getenv, detector: platform.NewDetector()}
}

// options holds the parsed command line.
type options struct {
	packageRoot string
	outputDir   string
	configFile  string
	skip        bool
	verify      string
	keyring     string
	jobs        int
	retries     int
	timeout     time.Duration
	progressBar bool
	dryRun      bool
	logLevel    string
}

func newRootCmd(d deps) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "jq-install",
		Short: "Install the jq binary into a package's bin directory",
		Long: `jq-install downloads the prebuilt jq release asset for this operating
system and architecture into <package-root>/bin. When no asset exists for
the host it downloads the release source tarball and builds it with
./configure, make and make install.

Set ` + config.EnvSkipInstall + `=true to skip installation entirely.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, d)
		},
	}
	cmd.SetVersionTemplate("jq-install {{.Version}}\n")

	f := cmd.Flags()
	f.StringVar(&opts.packageRoot, "package-root", ".", "package directory; jq is installed in its bin/ subdirectory")
	f.StringVar(&opts.outputDir, "output-dir", "", "install directory (overrides <package-root>/bin)")
	f.StringVar(&opts.configFile, "config", "", "Lua configuration file (default $"+config.EnvConfigFile+")")
	f.BoolVar(&opts.skip, "skip", false, "skip installation, like "+config.EnvSkipInstall+"=true")
	f.StringVar(&opts.verify, "verify", string(config.VerifyNone), "verify downloads: none, sha256 or gpg")
	f.StringVar(&opts.keyring, "keyring", "", "public keyring used with --verify=gpg (default: the embedded jq release keys)")
	f.IntVar(&opts.jobs, "jobs", config.DefaultJobs, "make parallelism for source builds (0 = one per CPU)")
	f.IntVar(&opts.retries, "retries", 0, "extra download attempts after a failure")
	f.DurationVar(&opts.timeout, "timeout", 0, "per-request download timeout (0 = none)")
	f.BoolVar(&opts.progressBar, "progress-bar", false, "draw a progress bar on a terminal instead of log lines")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print what would be installed without downloading")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	return cmd
}

func run(cmd *cobra.Command, opts *options, d deps) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sugar, err := newLogger(opts.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = sugar.Sync() }()
	logger := zapLogger{s: sugar}

	root, err := filepath.Abs(opts.packageRoot)
	if err != nil {
		return fmt.Errorf("resolve package root: %w", err)
	}

	cfg, err := config.Load(ctx, root, opts.configFile, config.NewParser(d.detector), d.getenv)
	if err != nil {
		return err
	}

	overrides, err := flagOverrides(cmd, opts)
	if err != nil {
		return err
	}
	cfg.Apply(overrides)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ConfigFile != "" {
		logger.Debug("applied configuration file", "path", cfg.ConfigFile)
	}

	info, err := d.detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect platform: %w", err)
	}
	logger.Debug("detected platform", "platform", info.Platform, "arch", info.Arch, "distro", info.Distro)

	installer, err := newInstaller(cfg, info, opts, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	result, err := installer.Install(ctx)
	if err != nil {
		return err
	}

	if result.Outcome == binary.OutcomePlanned {
		printPlan(cmd.OutOrStdout(), result)
	}
	logger.Debug("install finished", "outcome", result.Outcome, "path", result.Path, "duration", result.Duration)
	return nil
}

// flagOverrides returns the flags the user actually set, so unset flags
// do not mask the config file or environment.
func flagOverrides(cmd *cobra.Command, opts *options) (*config.Overrides, error) {
	o := &config.Overrides{}
	f := cmd.Flags()

	if f.Changed("output-dir") {
		o.OutputDir = &opts.outputDir
	}
	if f.Changed("skip") {
		o.SkipInstall = &opts.skip
	}
	if f.Changed("verify") {
		mode, err := config.ParseVerifyMode(opts.verify)
		if err != nil {
			return nil, err
		}
		o.Verify = &mode
	}
	if f.Changed("keyring") {
		o.KeyringPath = &opts.keyring
	}
	if f.Changed("jobs") {
		o.Jobs = &opts.jobs
	}
	if f.Changed("retries") {
		o.Retries = &opts.retries
	}
	if f.Changed("timeout") {
		o.Timeout = &opts.timeout
	}
	return o, nil
}

func newInstaller(cfg *config.Config, info *platform.Info, opts *options, logger config.Logger, stderr io.Writer) (*binary.Installer, error) {
	dlCfg := binary.DownloaderConfig{
		Timeout:          cfg.Timeout,
		Retries:          cfg.Retries,
		UserAgent:        "jq-install/" + Version,
		ProgressInterval: cfg.ProgressInterval,
		OnProgress:       logProgress(logger),
		Logger:           logger,
	}
	if opts.progressBar {
		if isTerminal(stderr) {
			dlCfg.OnProgress = newBarReporter(stderr, logger).report
			dlCfg.ProgressInterval = 0
		} else {
			logger.Debug("stderr is not a terminal, reporting progress as log lines")
		}
	}

	return binary.NewInstaller(binary.Config{
		OutputDir:    cfg.OutputDir,
		Release:      binary.ReleaseFromConfig(cfg),
		PlatformInfo: info,
		SkipInstall:  cfg.SkipInstall,
		DryRun:       opts.dryRun,
		Downloader:   binary.NewDownloader(dlCfg),
		Verifier:     binary.NewVerifier(cfg.Verify, cfg.KeyringPath),
		Builder:      binary.NewBuilder(&binary.ExecRunner{Logger: logger}, cfg.Jobs, logger),
		Logger:       logger,
	})
}

func printPlan(w io.Writer, result *binary.Result) {
	plan := result.Plan
	fmt.Fprintf(w, "platform: %s\n", plan.Platform)
	fmt.Fprintf(w, "arch:     %s\n", plan.Arch)
	fmt.Fprintf(w, "mode:     %s\n", plan.Mode)
	fmt.Fprintf(w, "url:      %s\n", plan.URL)
	fmt.Fprintf(w, "dest:     %s\n", result.Path)
}

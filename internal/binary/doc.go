// Package binary installs the jq executable into a package's bin directory.
//
// # Install flow
//
// An Installer runs once. It creates the output directory, stops early if
// a file already exists at the canonical path (jq, or jq.exe on Windows)
// or if installation is skipped, and otherwise takes the install lock and
// either:
//
//   - downloads the prebuilt release asset for the host's platform and
//     architecture, renames it to the canonical name and marks it 0755, or
//   - downloads the release source tarball into a scratch directory and
//     runs ./configure, make and make install with bindir set to the
//     output directory, when no asset matches the host.
//
// # Verification
//
// Downloads are trusted as-is by default. A Verifier in sha256 mode checks
// the asset against the release's sha256sum.txt; in gpg mode it checks a
// detached signature against jq's embedded release keys, or a keyring the
// user supplies instead. A rejected download is deleted before it reaches
// the canonical path.
//
// # Usage
//
//	inst, err := binary.NewInstaller(binary.Config{
//	    OutputDir:    filepath.Join(packageRoot, "bin"),
//	    Release:      binary.DefaultRelease,
//	    PlatformInfo: info,
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := inst.Install(ctx)
//
// # Architecture
//
// The package is organized into several components:
//   - Installer: orchestration of the steps above
//   - Downloader: HTTP download with optional retries and progress
//   - Verifier: GPG and SHA256 verification
//   - Extractor: tar.gz extraction for source tarballs
//   - Builder: configure/make/make install through a Runner
//   - Platform: asset and URL resolution per platform/architecture
package binary

package binary

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork

	"github.com/jqinstall/jq-install/internal/config"
)

// Verifier handles verification of downloaded artifacts
type Verifier struct {
	mode        config.VerifyMode
	keyringPath string

	once    sync.Once
	keyring openpgp.EntityList
	keyErr  error
}

// NewVerifier creates a verifier for the given mode. keyringPath is only
// read in gpg mode; when empty the embedded jq release keys are used.
func NewVerifier(mode config.VerifyMode, keyringPath string) *Verifier {
	return &Verifier{
		mode:        mode,
		keyringPath: keyringPath,
	}
}

// Mode returns the configured verification mode.
func (v *Verifier) Mode() config.VerifyMode {
	return v.mode
}

// Keyring loads the keyring used in gpg mode. It is read once.
func (v *Verifier) Keyring() (openpgp.EntityList, error) {
	v.once.Do(func() {
		if v.keyringPath == "" {
			v.keyring, v.keyErr = releaseKeyring(releaseKeys)
			return
		}
		v.keyring, v.keyErr = loadKeyring(v.keyringPath)
	})
	return v.keyring, v.keyErr
}

// VerifyFile checks artifactPath according to the verifier's mode.
// signaturePath is required in gpg mode, checksumPath in sha256 mode.
// The checksum entry is looked up by the artifact's base name.
func (v *Verifier) VerifyFile(artifactPath, signaturePath, checksumPath string) (*VerificationResult, error) {
	switch v.mode {
	case config.VerifyNone, "":
		return &VerificationResult{Method: VerificationNone, Success: true}, nil

	case config.VerifyGPG:
		if signaturePath == "" {
			return nil, fmt.Errorf("GPG signature required but not available")
		}

		result, err := v.verifyGPG(artifactPath, signaturePath)
		if err != nil {
			return result, fmt.Errorf("GPG verification failed: %w", err)
		}
		return result, nil

	case config.VerifySHA256:
		if checksumPath == "" {
			return nil, fmt.Errorf("checksum file required but not available")
		}

		result, err := v.verifySHA256(artifactPath, checksumPath)
		if err != nil {
			return result, fmt.Errorf("SHA256 verification failed: %w", err)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unknown verify mode: %s", v.mode)
	}
}

// verifyGPG verifies a file using a detached GPG signature
func (v *Verifier) verifyGPG(artifactPath, signaturePath string) (*VerificationResult, error) {
	fail := func(err error) (*VerificationResult, error) {
		return &VerificationResult{Method: VerificationGPG, Success: false, Error: err}, err
	}

	keyring, err := v.Keyring()
	if err != nil {
		return fail(fmt.Errorf("load keyring: %w", err))
	}

	artifactFile, err := os.Open(artifactPath)
	if err != nil {
		return fail(fmt.Errorf("open artifact: %w", err))
	}
	defer artifactFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fail(fmt.Errorf("open signature: %w", err))
	}
	defer sigFile.Close()

	// Try armored first, then binary
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, artifactFile, sigFile, nil)
	if err != nil {
		if _, seekErr := artifactFile.Seek(0, io.SeekStart); seekErr != nil {
			return fail(fmt.Errorf("rewind artifact: %w", seekErr))
		}
		if _, seekErr := sigFile.Seek(0, io.SeekStart); seekErr != nil {
			return fail(fmt.Errorf("rewind signature: %w", seekErr))
		}
		_, err = openpgp.CheckDetachedSignature(keyring, artifactFile, sigFile, nil)
	}
	if err != nil {
		return fail(fmt.Errorf("verify signature: %w", err))
	}

	return &VerificationResult{Method: VerificationGPG, Success: true}, nil
}

// verifySHA256 verifies a file using SHA256 checksum
func (v *Verifier) verifySHA256(artifactPath, checksumPath string) (*VerificationResult, error) {
	fail := func(err error) (*VerificationResult, error) {
		return &VerificationResult{Method: VerificationSHA256, Success: false, Error: err}, err
	}

	actualChecksum, err := calculateSHA256(artifactPath)
	if err != nil {
		return fail(fmt.Errorf("calculate checksum: %w", err))
	}

	expectedChecksum, err := findChecksum(checksumPath, filepath.Base(artifactPath))
	if err != nil {
		return fail(fmt.Errorf("find checksum: %w", err))
	}

	// Compare checksums (case-insensitive)
	if !strings.EqualFold(actualChecksum, expectedChecksum) {
		return fail(fmt.Errorf("checksum mismatch:\nactual:   %s\nexpected: %s",
			actualChecksum, expectedChecksum))
	}

	return &VerificationResult{Method: VerificationSHA256, Success: true}, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for a specific filename in a checksum file
// Format: "abc123def456  filename" (sha256sum output, optional '*' binary marker)
func findChecksum(checksumPath, filename string) (string, error) {
	file, err := os.Open(checksumPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		checksumFilename := strings.TrimPrefix(parts[1], "*")
		if checksumFilename == filename || filepath.Base(checksumFilename) == filename {
			return parts[0], nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}

	return "", fmt.Errorf("checksum not found for %s", filename)
}

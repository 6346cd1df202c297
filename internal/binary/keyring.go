package binary

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// Public keys jq signs its releases with, embedded at compile time.
//
//go:embed keyrings
var embeddedKeyrings embed.FS

// releaseKeys is where the default keyring is read from.
var releaseKeys fs.FS = embeddedKeyrings

// ErrNoReleaseKey is returned in gpg mode when no keyring is configured and
// the build carries no jq release key.
var ErrNoReleaseKey = errors.New("no jq release key is embedded in this build; configure a keyring")

// keyFileExts are the file extensions read from the embedded key directory.
var keyFileExts = map[string]bool{".asc": true, ".key": true, ".gpg": true}

// releaseKeyring collects every key file under keyrings/ in fsys.
func releaseKeyring(fsys fs.FS) (openpgp.EntityList, error) {
	var names []string
	err := fs.WalkDir(fsys, "keyrings", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && keyFileExts[path.Ext(name)] {
			names = append(names, name)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list release keys: %w", err)
	}
	sort.Strings(names)

	var keyring openpgp.EntityList
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read release key %s: %w", name, err)
		}
		entities, err := readKeyring(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("release key %s: %w", name, err)
		}
		keyring = append(keyring, entities...)
	}

	if len(keyring) == 0 {
		return nil, ErrNoReleaseKey
	}
	return keyring, nil
}

// loadKeyring reads an armored or binary public keyring from disk.
func loadKeyring(keyringPath string) (openpgp.EntityList, error) {
	if keyringPath == "" {
		return nil, fmt.Errorf("no keyring configured")
	}

	keyringFile, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	return readKeyring(keyringFile)
}

// readKeyring parses r as an armored keyring, falling back to binary.
func readKeyring(r io.ReadSeeker) (openpgp.EntityList, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(r)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

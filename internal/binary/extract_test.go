package binary

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// tarEntry is one archive member for writeTestTarGz.
type tarEntry struct {
	name     string
	body     string
	mode     int64
	typeflag byte
	linkname string
}

// writeTestTarGz writes a gzipped tarball with the given entries to
// dir/name and returns its path.
func writeTestTarGz(t *testing.T, dir, name string, entries []tarEntry) string {
	t.Helper()

	archivePath := filepath.Join(dir, name)
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     e.mode,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
		}
		if hdr.Typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0644
		}
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.body))
		}

		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", e.name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write body %s: %v", e.name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return archivePath
}

func TestExtractTarGz(t *testing.T) {
	tests := []struct {
		name      string
		entries   []tarEntry
		strip     int
		wantFiles map[string]string
	}{
		{
			name: "no_strip",
			entries: []tarEntry{
				{name: "README", body: "readme"},
				{name: "src/main.c", body: "int main(){}"},
			},
			strip: 0,
			wantFiles: map[string]string{
				"README":     "readme",
				"src/main.c": "int main(){}",
			},
		},
		{
			name: "strip_top_level_directory",
			entries: []tarEntry{
				{name: "jq-1.7.1/", typeflag: tar.TypeDir, mode: 0755},
				{name: "jq-1.7.1/configure", body: "#!/bin/sh\n", mode: 0755},
				{name: "jq-1.7.1/src/jv.c", body: "/* jv */"},
			},
			strip: 1,
			wantFiles: map[string]string{
				"configure": "#!/bin/sh\n",
				"src/jv.c":  "/* jv */",
			},
		},
		{
			name: "dot_slash_prefix",
			entries: []tarEntry{
				{name: "./jq-1.7.1/Makefile.in", body: "all:"},
			},
			strip: 1,
			wantFiles: map[string]string{
				"Makefile.in": "all:",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			archive := writeTestTarGz(t, tmpDir, "src.tar.gz", tt.entries)
			destDir := filepath.Join(tmpDir, "out")

			if err := NewExtractor().ExtractTarGz(archive, destDir, tt.strip); err != nil {
				t.Fatalf("ExtractTarGz() error = %v", err)
			}

			for rel, want := range tt.wantFiles {
				content, err := os.ReadFile(filepath.Join(destDir, filepath.FromSlash(rel)))
				if err != nil {
					t.Errorf("expected file %s: %v", rel, err)
					continue
				}
				if string(content) != want {
					t.Errorf("%s content = %q, want %q", rel, content, want)
				}
			}

			if tt.strip > 0 {
				if _, err := os.Stat(filepath.Join(destDir, "jq-1.7.1")); !os.IsNotExist(err) {
					t.Error("top-level directory was not stripped")
				}
			}
		})
	}
}

func TestExtractTarGz_PreservesExecutableBit(t *testing.T) {
	tmpDir := t.TempDir()
	archive := writeTestTarGz(t, tmpDir, "src.tar.gz", []tarEntry{
		{name: "jq-1.7.1/configure", body: "#!/bin/sh\nexit 0\n", mode: 0755},
	})

	destDir := filepath.Join(tmpDir, "out")
	if err := NewExtractor().ExtractTarGz(archive, destDir, 1); err != nil {
		t.Fatalf("ExtractTarGz() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(destDir, "configure"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("configure mode = %v, want owner executable", info.Mode().Perm())
	}
}

func TestExtractTarGz_PathTraversal(t *testing.T) {
	tests := []struct {
		name      string
		entryName string
	}{
		{"parent_directory", "../../../etc/passwd"},
		{"nested_parent", "jq/../../escape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			archive := writeTestTarGz(t, tmpDir, "evil.tar.gz", []tarEntry{
				{name: tt.entryName, body: "malicious"},
			})

			err := NewExtractor().ExtractTarGz(archive, filepath.Join(tmpDir, "out"), 0)
			if err == nil {
				t.Fatal("expected path traversal error")
			}
			if !strings.Contains(err.Error(), "illegal file path") {
				t.Errorf("unexpected error for %s: %v", tt.entryName, err)
			}
		})
	}
}

func TestExtractTarGz_SymlinkTraversal(t *testing.T) {
	tests := []struct {
		name     string
		linkname string
		wantErr  bool
	}{
		{"relative_escape", "../../outside", true},
		{"absolute_target", "/etc/passwd", true},
		{"inside_tree", "real.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			archive := writeTestTarGz(t, tmpDir, "links.tar.gz", []tarEntry{
				{name: "real.txt", body: "data"},
				{name: "link", typeflag: tar.TypeSymlink, linkname: tt.linkname},
			})

			err := NewExtractor().ExtractTarGz(archive, filepath.Join(tmpDir, "out"), 0)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "illegal symlink") {
					t.Errorf("expected symlink error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExtractTarGz_CorruptedArchive(t *testing.T) {
	tmpDir := t.TempDir()
	archive := filepath.Join(tmpDir, "corrupted.tar.gz")
	if err := os.WriteFile(archive, []byte("not a gzip file"), 0644); err != nil {
		t.Fatal(err)
	}

	err := NewExtractor().ExtractTarGz(archive, filepath.Join(tmpDir, "out"), 0)
	if err == nil {
		t.Fatal("expected error for corrupted archive")
	}
	if !strings.Contains(err.Error(), "gzip") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtractTarGz_Empty(t *testing.T) {
	tmpDir := t.TempDir()

	// only the top-level directory, which strip removes
	archive := writeTestTarGz(t, tmpDir, "empty.tar.gz", []tarEntry{
		{name: "jq-1.7.1/", typeflag: tar.TypeDir, mode: 0755},
	})

	err := NewExtractor().ExtractTarGz(archive, filepath.Join(tmpDir, "out"), 1)
	if err == nil || !strings.Contains(err.Error(), "no files") {
		t.Errorf("expected empty archive error, got %v", err)
	}
}

func TestExtractTarGz_MissingArchive(t *testing.T) {
	tmpDir := t.TempDir()
	if err := NewExtractor().ExtractTarGz(filepath.Join(tmpDir, "missing.tar.gz"), tmpDir, 0); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestStripComponents(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		want   string
		wantOK bool
	}{
		{"jq-1.7.1/src/main.c", 1, filepath.FromSlash("src/main.c"), true},
		{"./jq-1.7.1/configure", 1, "configure", true},
		{"jq-1.7.1/", 1, "", false},
		{"jq-1.7.1", 1, "", false},
		{"a/b/c", 2, "c", true},
		{"file", 0, "file", true},
	}

	for _, tt := range tests {
		got, ok := stripComponents(tt.name, tt.n)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("stripComponents(%q, %d) = (%q, %v), want (%q, %v)", tt.name, tt.n, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSetExecutable(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "jq")

	if err := os.WriteFile(testFile, []byte("binary"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := SetExecutable(testFile); err != nil {
		t.Fatalf("SetExecutable() failed: %v", err)
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatal(err)
	}

	if info.Mode().Perm() != 0755 {
		t.Errorf("expected permissions 0755, got %v", info.Mode().Perm())
	}

	if err := SetExecutable(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

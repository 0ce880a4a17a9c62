package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	replayDir := filepath.Join(tmpDir, "replay")
	otherDir := filepath.Join(tmpDir, "other")
	for _, d := range []string{replayDir, otherDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", d, err)
		}
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"file inside directory", filepath.Join(replayDir, "vol_001.json"), replayDir, false},
		{"nested file inside directory", filepath.Join(replayDir, "case7", "vol_001.json"), replayDir, false},
		{"dotdot escape", filepath.Join(replayDir, "..", "other", "vol.json"), replayDir, true},
		{"sibling directory", filepath.Join(otherDir, "vol.json"), replayDir, true},
		{"safe dir itself is not an escape", replayDir, replayDir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if tt.wantError && err == nil {
				t.Errorf("expected %s to be rejected", tt.filePath)
			}
			if !tt.wantError && err != nil {
				t.Errorf("expected %s to be accepted: %v", tt.filePath, err)
			}
		})
	}
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	tmpDir := t.TempDir()
	replayDir := filepath.Join(tmpDir, "replay")
	outsideDir := filepath.Join(tmpDir, "outside")
	for _, d := range []string{replayDir, outsideDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", d, err)
		}
	}

	// A symlink inside the replay directory pointing outside it.
	link := filepath.Join(replayDir, "link")
	if err := os.Symlink(outsideDir, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(link, "vol.json"), replayDir); err == nil {
		t.Error("expected the symlinked path to be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sess_8f14e45f-ceea-4672-950c-0c51f1e9a4a3", "sess_8f14e45f-ceea-4672-950c-0c51f1e9a4a3"},
		{"../../etc/passwd", "etc_passwd"},
		{"sess id with spaces", "sess_id_with_spaces"},
		{"", "unknown"},
		{"///", "unknown"},
		{"report.v2.html", "report.v2.html"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

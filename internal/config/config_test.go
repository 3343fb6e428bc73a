package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()

	in := &Local{IssuePrefix: "acme"}
	if err := in.Save(dir); err != nil {
		t.Fatal(err)
	}
	out := LoadLocal(dir)
	if out.IssuePrefix != "acme" {
		t.Errorf("IssuePrefix = %q, want %q", out.IssuePrefix, "acme")
	}
}

func TestLoadLocalMissingOrBroken(t *testing.T) {
	dir := t.TempDir()
	if got := LoadLocal(dir); got.IssuePrefix != "" {
		t.Errorf("missing file: IssuePrefix = %q, want empty", got.IssuePrefix)
	}

	if err := os.WriteFile(filepath.Join(dir, LocalFileName), []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := LoadLocal(dir); got.IssuePrefix != "" {
		t.Errorf("broken file: IssuePrefix = %q, want empty", got.IssuePrefix)
	}
}

func TestActorPrecedence(t *testing.T) {
	Initialize()

	t.Setenv("TISSUE_ACTOR", "robot")
	if got := Actor(); got != "robot" {
		t.Errorf("Actor() = %q, want %q", got, "robot")
	}

	t.Setenv("TISSUE_ACTOR", "")
	t.Setenv("USER", "alex")
	if got := Actor(); got != "alex" {
		t.Errorf("Actor() = %q, want %q", got, "alex")
	}

	t.Setenv("USER", "")
	if got := Actor(); got != "unknown" {
		t.Errorf("Actor() = %q, want %q", got, "unknown")
	}
}

func TestDirFromEnv(t *testing.T) {
	Initialize()
	t.Setenv("TISSUE_DIR", "/tmp/elsewhere/.tissue")
	if got := Dir(); got != "/tmp/elsewhere/.tissue" {
		t.Errorf("Dir() = %q", got)
	}
}

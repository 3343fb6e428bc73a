package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tissue-dev/tissue/internal/config"
	"github.com/tissue-dev/tissue/internal/store"
)

// runCmd executes the root command in-process and returns captured stdout.
// Only happy paths can be tested this way: error paths call os.Exit.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if execErr != nil {
		t.Fatalf("tissue %s: %v", strings.Join(args, " "), execErr)
	}
	return string(out)
}

func setupCLIStore(t *testing.T) string {
	t.Helper()
	config.Initialize()
	dir := filepath.Join(t.TempDir(), store.DirName)
	t.Setenv("TISSUE_DIR", dir)

	// Each test starts from clean flag state.
	storeDir = ""
	jsonOutput = false
	actorFlag = ""

	s, err := store.Init(t.Context(), dir, "cli")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCreateListShow(t *testing.T) {
	setupCLIStore(t)

	out := runCmd(t, "create", "broken pipeline", "--body", "fails on main", "-t", "ci")
	if !strings.Contains(out, "Created cli-") {
		t.Fatalf("create output = %q", out)
	}
	id := issueIDFromCreate(t, out)

	out = runCmd(t, "list")
	if !strings.Contains(out, "broken pipeline") || !strings.Contains(out, "[ci]") {
		t.Errorf("list output = %q", out)
	}

	out = runCmd(t, "show", id)
	for _, want := range []string{id, "broken pipeline", "fails on main", "status:"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	setupCLIStore(t)

	out := runCmd(t, "create", "machine readable", "--json")
	jsonOutput = false

	var issue struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &issue); err != nil {
		t.Fatalf("create --json output not JSON: %v\n%s", err, out)
	}
	if issue.Title != "machine readable" || issue.Status != "open" {
		t.Errorf("issue = %+v", issue)
	}
	if !strings.HasPrefix(issue.ID, "cli-") {
		t.Errorf("id = %q", issue.ID)
	}
}

func TestCloseAndReady(t *testing.T) {
	setupCLIStore(t)

	out := runCmd(t, "create", "blocker")
	blocker := issueIDFromCreate(t, out)
	out = runCmd(t, "create", "blocked work")
	blocked := issueIDFromCreate(t, out)

	runCmd(t, "dep", "add", blocker, blocked)

	out = runCmd(t, "ready")
	if strings.Contains(out, "blocked work") {
		t.Errorf("blocked issue listed as ready:\n%s", out)
	}
	if !strings.Contains(out, "blocker") {
		t.Errorf("blocker missing from ready:\n%s", out)
	}

	runCmd(t, "close", blocker)

	out = runCmd(t, "ready")
	if !strings.Contains(out, "blocked work") {
		t.Errorf("unblocked issue missing from ready:\n%s", out)
	}
}

func TestCommentAndInfo(t *testing.T) {
	setupCLIStore(t)

	out := runCmd(t, "create", "noted")
	id := issueIDFromCreate(t, out)
	runCmd(t, "comment", id, "a remark")

	out = runCmd(t, "show", id)
	if !strings.Contains(out, "a remark") {
		t.Errorf("show missing comment:\n%s", out)
	}

	out = runCmd(t, "info")
	if !strings.Contains(out, "issues:    1") || !strings.Contains(out, "comments:  1") {
		t.Errorf("info output = %q", out)
	}
}

func TestVersion(t *testing.T) {
	setupCLIStore(t)
	out := runCmd(t, "version")
	if !strings.Contains(out, "tissue version") {
		t.Errorf("version output = %q", out)
	}
}

func issueIDFromCreate(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	if len(fields) < 2 {
		t.Fatalf("unexpected create output %q", out)
	}
	return strings.TrimSuffix(fields[1], ":")
}

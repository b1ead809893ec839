package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRunWithoutArgsPrintsUsage(t *testing.T) {
	t.Setenv("DESKCORE_STORAGE_DRIVER", "memory")
	stdout, stderr, code := runCLI(t)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if stdout != "" || !strings.Contains(stderr, "usage:") {
		t.Fatalf("expected usage on stderr, stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Setenv("DESKCORE_STORAGE_DRIVER", "memory")
	_, stderr, code := runCLI(t, "frobnicate")
	if code != 2 || !strings.Contains(stderr, "usage:") {
		t.Fatalf("expected usage for unknown command, code=%d stderr=%q", code, stderr)
	}
}

func TestCreateAndListPersistAcrossInvocations(t *testing.T) {
	t.Setenv("DESKCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("DESKCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "deskcore.db"))
	t.Setenv("DESKCORE_LOG_LEVEL", "error")

	stdout, stderr, code := runCLI(t, "create-checklist", "-name", "Groceries")
	if code != 0 {
		t.Fatalf("create-checklist failed: code=%d stderr=%q", code, stderr)
	}
	id := strings.TrimSpace(stdout)
	if id == "" {
		t.Fatalf("expected created id on stdout")
	}

	stdout, stderr, code = runCLI(t, "list", "-type", "checklist")
	if code != 0 {
		t.Fatalf("list failed: code=%d stderr=%q", code, stderr)
	}
	if !strings.Contains(stdout, id) || !strings.Contains(stdout, "Groceries") {
		t.Fatalf("expected checklist in list output, got %q", stdout)
	}
}

func TestTreeRendersNestedModules(t *testing.T) {
	t.Setenv("DESKCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("DESKCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "deskcore.db"))
	t.Setenv("DESKCORE_LOG_LEVEL", "error")

	stdout, _, code := runCLI(t, "create-checklist", "-name", "Trip")
	if code != 0 {
		t.Fatalf("create failed")
	}
	parent := strings.TrimSpace(stdout)

	stdout, stderr, code := runCLI(t, "create-note", "-text", "Pack sunscreen", "-parent", "checklist:"+parent)
	if code != 0 {
		t.Fatalf("nested create failed: stderr=%q", stderr)
	}
	child := strings.TrimSpace(stdout)

	stdout, stderr, code = runCLI(t, "tree", "-parent", "checklist:"+parent)
	if code != 0 {
		t.Fatalf("tree failed: stderr=%q", stderr)
	}
	if !strings.Contains(stdout, "Notes:") || !strings.Contains(stdout, child) {
		t.Fatalf("expected nested note in tree output, got %q", stdout)
	}
}

func TestDraftPostsToConfiguredGateway(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer gateway.Close()

	t.Setenv("DESKCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("DESKCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "deskcore.db"))
	t.Setenv("DESKCORE_LOG_LEVEL", "error")
	t.Setenv("DESKCORE_MAILDRAFT_URL", gateway.URL)
	t.Setenv("DESKCORE_MAILDRAFT_TOKEN", "tok-1")

	stdout, stderr, code := runCLI(t, "create-note", "-text", "Call the plumber")
	if code != 0 {
		t.Fatalf("create failed: %s", stderr)
	}
	id := strings.TrimSpace(stdout)

	stdout, stderr, code = runCLI(t, "draft", "-id", id)
	if code != 0 {
		t.Fatalf("draft failed: code=%d stderr=%q", code, stderr)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if !strings.Contains(string(gotBody), "Call the plumber") {
		t.Fatalf("gateway did not receive the draft, body=%s", gotBody)
	}
	if !strings.Contains(stdout, "Call the plumber") {
		t.Fatalf("expected draft echoed on stdout, got %q", stdout)
	}
}

func TestDraftRendersLocallyWithoutGateway(t *testing.T) {
	t.Setenv("DESKCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("DESKCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "deskcore.db"))
	t.Setenv("DESKCORE_LOG_LEVEL", "error")
	t.Setenv("DESKCORE_MAILDRAFT_URL", "")

	stdout, _, code := runCLI(t, "create-note", "-text", "Water the plants")
	if code != 0 {
		t.Fatalf("create failed")
	}
	id := strings.TrimSpace(stdout)

	stdout, stderr, code := runCLI(t, "draft", "-id", id)
	if code != 0 {
		t.Fatalf("draft failed: stderr=%q", stderr)
	}
	if !strings.Contains(stdout, "Water the plants") {
		t.Fatalf("expected rendered draft, got %q", stdout)
	}
}

func TestParseContext(t *testing.T) {
	ctx, err := parseContext("checklist:abc")
	if err != nil || ctx == nil || ctx.ID != "abc" {
		t.Fatalf("unexpected %v %v", ctx, err)
	}
	if ctx, err := parseContext(""); err != nil || ctx != nil {
		t.Fatalf("empty context should parse to nil")
	}
	if _, err := parseContext("nocolon"); err == nil {
		t.Fatalf("expected error for malformed context")
	}
}

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the root command with args against a settings file in a
// temporary directory and returns stdout.
func runCLI(t *testing.T, settingsPath string, args ...string) (string, error) {
	t.Helper()
	clearConfigEnv(t)
	t.Setenv("LAMCONF_BACKEND", BackendFile)
	t.Setenv("LAMCONF_CONFIG_FILE", settingsPath)
	t.Setenv("LAMCONF_ADMIN_PASSWORD", "")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestShowDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lam.yaml")
	out, err := runCLI(t, path, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Host: localhost", "Port: 389", "SSL: False", "Password: not set"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestPasswdThenShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lam.yaml")
	if _, err := runCLI(t, path, "passwd", "--password", "secret", "--cost", "4"); err != nil {
		t.Fatalf("passwd: %v", err)
	}
	out, err := runCLI(t, path, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "Password: set") {
		t.Fatalf("expected password to be set:\n%s", out)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("password leaked into output")
	}
}

func TestPasswdRequiresPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lam.yaml")
	if _, err := runCLI(t, path, "passwd"); err == nil {
		t.Fatalf("expected error without a password")
	}
}

func TestMigrateStatusFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lam.yaml")
	_, err := runCLI(t, path, "migrate", "status")
	if err == nil || !strings.Contains(err.Error(), "no schema migrations") {
		t.Fatalf("expected no migrations error, got %v", err)
	}
}

func TestAuditMemoryTrailEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lam.yaml")
	out, err := runCLI(t, path, "audit", "--limit", "5")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !strings.Contains(strings.ToUpper(out), "TIME") || !strings.Contains(out, "0 of 0 events") {
		t.Fatalf("unexpected audit output:\n%s", out)
	}
}

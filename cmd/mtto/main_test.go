package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	origVersion, origBuild := Version, BuildTime
	Version, BuildTime = "1.2.0", "2025-06-03"
	defer func() { Version, BuildTime = origVersion, origBuild }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "mtto 1.2.0 (built: 2025-06-03)") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmdRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "migrate", "create-admin", "version"} {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("expected subcommand %q, got %v (err %v)", name, found, err)
		}
	}
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"create-admin", "--name", "Jefe"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing --email/--password")
	}
	if !strings.Contains(err.Error(), "email") {
		t.Errorf("expected missing email flag in error, got %v", err)
	}
}

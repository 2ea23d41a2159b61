package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stash-go/internal/command"
	"stash-go/internal/config"
)

type testIO struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// newTestConfig returns a config with in-process backends rooted at a temp dir.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Catalog.Type = "memory"
	cfg.Vault.Type = "memory"
	cfg.Encryption.Type = "test"
	cfg.LogLevel = "debug"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, stdin string) (*App, *testIO) {
	t.Helper()
	tio := &testIO{}
	a, err := New(context.Background(), cfg, Options{
		Stdin:      strings.NewReader(stdin),
		Stdout:     &tio.stdout,
		Stderr:     &tio.stderr,
		Passphrase: func() (string, error) { return "secret", nil },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, tio
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{name: "unknown catalog", modify: func(c *config.Config) { c.Catalog.Type = "postgres" }},
		{name: "unknown vault", modify: func(c *config.Config) { c.Vault.Type = "ftp" }},
		{name: "unknown encryption", modify: func(c *config.Config) { c.Encryption.Type = "rot13" }},
		{name: "bad log level", modify: func(c *config.Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.modify(cfg)
			if _, err := New(context.Background(), cfg, Options{Stderr: &bytes.Buffer{}}); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestApp_RunCommand(t *testing.T) {
	a, tio := newTestApp(t, newTestConfig(t), "")
	defer a.Close()
	ctx := context.Background()

	if code := a.RunCommand(ctx, []string{"create", "/", "docs"}); code != command.ExitOK {
		t.Fatalf("create exit code = %d, stderr = %q", code, tio.stderr.String())
	}
	if code := a.RunCommand(ctx, []string{"list", "/"}); code != command.ExitOK {
		t.Fatalf("list exit code = %d, stderr = %q", code, tio.stderr.String())
	}
	if !strings.Contains(tio.stdout.String(), "docs/") {
		t.Errorf("stdout = %q, want the new collection listed", tio.stdout.String())
	}
}

func TestApp_RunCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "no command", args: nil, wantCode: command.ExitInvalidUsage, wantErr: "stash: error: no command given"},
		{name: "unknown verb", args: []string{"frobnicate"}, wantCode: command.ExitInvalidUsage, wantErr: `stash: error: unknown command "frobnicate"`},
		{name: "missing path", args: []string{"list", "/nope"}, wantCode: command.ExitFailure, wantErr: "stash: error:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, tio := newTestApp(t, newTestConfig(t), "")
			defer a.Close()

			if code := a.RunCommand(context.Background(), tt.args); code != tt.wantCode {
				t.Errorf("RunCommand() = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(tio.stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", tio.stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestApp_RunShell(t *testing.T) {
	a, tio := newTestApp(t, newTestConfig(t), "create / inbox\nlist /\nbogus\nquit\nlist /\n")
	defer a.Close()

	if err := a.RunShell(context.Background()); err != nil {
		t.Fatalf("RunShell() error = %v", err)
	}

	out := tio.stdout.String()
	if strings.Count(out, "inbox/") != 1 {
		t.Errorf("stdout = %q, want exactly one listing before quit", out)
	}
	if strings.Contains(out, ShellPrompt) {
		t.Errorf("stdout = %q, want no prompt for non-terminal input", out)
	}
	if !strings.Contains(tio.stderr.String(), "error: unknown command") {
		t.Errorf("stderr = %q, want the bad verb reported", tio.stderr.String())
	}
	if strings.Contains(tio.stderr.String(), "stash: error") {
		t.Errorf("stderr = %q, want no app name prefix inside the shell", tio.stderr.String())
	}
	if a.op.Commands != 2 || a.op.Status != "success" {
		t.Errorf("operation = %+v, want 2 successful commands", *a.op)
	}
}

func TestApp_EncryptedRoundTrip(t *testing.T) {
	base := t.TempDir()
	cfg := config.NewConfig(base)
	cfg.Encryption.Type = "test"

	src := filepath.Join(t.TempDir(), "note.json")
	if err := os.WriteFile(src, []byte(`{"hello":"world"}`), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "out")

	a, tio := newTestApp(t, cfg, "")
	ctx := context.Background()
	for _, args := range [][]string{
		{"create", "/", "notes"},
		{"add", "/notes", src},
		{"dump", "/notes", out},
	} {
		if code := a.RunCommand(ctx, args); code != command.ExitOK {
			t.Fatalf("%s exit code = %d, stderr = %q", args[0], code, tio.stderr.String())
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(out, "note.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != `{"hello":"world"}` {
		t.Errorf("dumped payload = %q", got)
	}

	// The catalog and the vault survive the process.
	a2, tio2 := newTestApp(t, cfg, "")
	defer a2.Close()
	if code := a2.RunCommand(ctx, []string{"list", "/notes"}); code != command.ExitOK {
		t.Fatalf("list exit code = %d, stderr = %q", code, tio2.stderr.String())
	}
	if !strings.Contains(tio2.stdout.String(), "note.json") {
		t.Errorf("stdout = %q, want note.json listed", tio2.stdout.String())
	}
}

func TestApp_Close_WritesMetricsAndLog(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "stash.prom")

	a, _ := newTestApp(t, cfg, "")
	a.RunCommand(context.Background(), []string{"list", "/"})
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	prom, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(prom), `stash_commands_total{command="list",exit_code="0"} 1`) {
		t.Errorf("metrics = %s", prom)
	}

	logData, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(logData), "operation finished\tmode=run\tcommands=1\tfailed=0\tstatus=success") {
		t.Errorf("log = %s", logData)
	}
}

func TestApp_SetupEncryption(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encryption.Type = "age"

	a, _ := newTestApp(t, cfg, "")
	defer a.Close()

	if err := a.SetupEncryption("pw"); err != nil {
		t.Fatalf("SetupEncryption() error = %v", err)
	}
	if _, err := os.Stat(cfg.Encryption.PublicKeyPath); err != nil {
		t.Errorf("public key not written: %v", err)
	}
	if err := a.SetupEncryption("pw"); err == nil {
		t.Error("second SetupEncryption() error = nil, want refusal")
	}
}

func TestApp_ValidateVault(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Vault.Type = "filesystem"

	a, _ := newTestApp(t, cfg, "")
	defer a.Close()

	if err := a.ValidateVault(context.Background()); err != nil {
		t.Errorf("ValidateVault() error = %v", err)
	}
}

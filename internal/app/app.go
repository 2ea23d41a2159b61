// Package app wires configuration, backends and the command machinery into
// something the CLI can run.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/term"

	"stash-go/internal/catalog"
	"stash-go/internal/command"
	"stash-go/internal/config"
	"stash-go/internal/encryption"
	"stash-go/internal/fs"
	"stash-go/internal/loop"
	"stash-go/internal/metrics"
	"stash-go/internal/retry"
	"stash-go/internal/shell"
	"stash-go/internal/stash"
	"stash-go/internal/store"
	"stash-go/internal/vault"
)

// ShellPrompt is printed before each line when stdin is a terminal.
const ShellPrompt = "stash> "

// Options configures the process-facing side of an App.
type Options struct {
	Verbose bool // copy log lines to Stderr
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer

	// Passphrase unlocks encrypted payloads; nil means ReadPassphrase.
	Passphrase store.PassphraseFunc
}

// App is the application layer between the CLI and the command machinery.
// It constructs all dependencies from config and releases them on Close.
type App struct {
	cfg     *config.Config
	opts    Options
	loop    *loop.Loop
	catalog stash.Catalog
	vault   stash.Vault
	enc     stash.Encryptor
	metrics *metrics.Metrics
	client  *store.Client
	factory *command.Factory
	logger  *slog.Logger
	logFile *os.File
	opID    string
	op      *Operation
}

// New creates a fully wired App from cfg. The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Passphrase == nil {
		opts.Passphrase = func() (string, error) { return ReadPassphrase("Passphrase: ") }
	}

	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	opID := uuid.New().String()
	logger, logFile, err := newLogger(cfg.LogDir, opID, level, opts.Verbose, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &App{
		cfg:     cfg,
		opts:    opts,
		loop:    loop.New(),
		metrics: metrics.New(),
		logger:  logger,
		logFile: logFile,
		opID:    opID,
	}

	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	cat, err := catalog.NewCatalogFromConfig(a.cfg.Catalog, stash.RealClock{})
	if err != nil {
		return fmt.Errorf("creating catalog: %w", err)
	}
	a.catalog = cat

	if err := cat.CheckMigrations(); err != nil {
		return fmt.Errorf("catalog schema out of date: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, a.cfg.Vault)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	a.vault = v

	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.enc = enc

	log := &slogAdapter{l: a.logger}
	rc := retry.DefaultConfig()
	if a.cfg.Client.RetryAttempts > 0 {
		rc.MaxAttempts = a.cfg.Client.RetryAttempts
	}

	a.client = store.NewClient(a.loop, cat, v, enc, store.Options{
		Timeout:    a.cfg.Client.Timeout.Duration,
		Retry:      rc,
		Metrics:    a.metrics,
		Logger:     log,
		Passphrase: a.opts.Passphrase,
	})
	a.factory = command.NewFactory(command.Env{
		Loop:   a.loop,
		Store:  a.client,
		FS:     fs.NewOSFileSystem(),
		Out:    a.opts.Stdout,
		Logger: log,
		IDs:    stash.UUIDGenerator{},
	})

	a.logger.Debug("app ready",
		"catalog", a.cfg.Catalog.Type,
		"vault", a.cfg.Vault.Type,
		"encryption", a.cfg.Encryption.Type)
	return nil
}

// RunCommand runs exactly one command and returns its exit code.
func (a *App) RunCommand(ctx context.Context, args []string) int {
	a.op = NewOperation(a.opID, "run")
	r := &shell.Reporter{AppName: a.cfg.AppName, W: a.opts.Stderr}

	code := shell.NewRunner(a.loop, a.factory, r, nil, &slogAdapter{l: a.logger}).Run(ctx, args)

	verb := ""
	if len(args) > 0 {
		verb = args[0]
	}
	a.record(verb, code)
	return code
}

// RunShell reads command lines from stdin until quit, exit or end of input.
func (a *App) RunShell(ctx context.Context) error {
	a.op = NewOperation(a.opID, "shell")
	r := &shell.Reporter{AppName: a.cfg.AppName, Interactive: true, W: a.opts.Stderr}

	opts := shell.Options{
		OnFinish: func(verb string, res command.Result) { a.record(verb, res.ExitCode) },
		Logger:   &slogAdapter{l: a.logger},
	}
	if isTerminal(a.opts.Stdin) {
		opts.Prompt = ShellPrompt
	}
	return shell.New(a.loop, a.factory, a.opts.Stdin, a.opts.Stdout, r, opts).Run(ctx)
}

func (a *App) record(verb string, code int) {
	a.metrics.RecordCommand(verb, code)
	if a.op != nil {
		a.op.Record(code)
	}
}

// SetupEncryption generates the key pair for the configured encryptor.
func (a *App) SetupEncryption(passphrase string) error {
	if err := a.enc.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	return nil
}

// ValidateVault checks that the configured vault is reachable and writable.
func (a *App) ValidateVault(ctx context.Context) error {
	if err := a.vault.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("validating vault %s: %w", a.cfg.Vault.Name, err)
	}
	return nil
}

// Metrics exposes the recorded metrics.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Close writes the metrics textfile if one is configured, then releases the
// catalog and the log file. It returns the first error encountered.
func (a *App) Close() error {
	var firstErr error

	if a.op != nil {
		a.logger.Info("operation finished", a.op.LogArgs()...)
	}

	if a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			firstErr = fmt.Errorf("writing metrics: %w", err)
		}
	}

	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing catalog: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

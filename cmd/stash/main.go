package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"stash-go/internal/app"
	"stash-go/internal/command"
	"stash-go/internal/config"
)

// exitError carries a command's exit code out of cobra.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

var (
	configPath string
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	fmt.Fprintf(os.Stderr, "stash: error: %v\n", err)
	os.Exit(1)
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.ReadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config (try \"stash config init\"): %w", err)
	}

	a, err := app.New(ctx, cfg, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "stash",
	Short:         "Command-line client for a hierarchical item store",
	Long:          "Without a command, stash starts an interactive shell.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runShell,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Read commands from stdin, one per line",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return a.RunShell(cmd.Context())
}

// newVerbCmd exposes a command verb. Flags are left to the verb itself so
// that the one-shot and the shell forms parse identically.
func newVerbCmd(d command.Descriptor) *cobra.Command {
	return &cobra.Command{
		Use:                d.Usage,
		Short:              d.Summary,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rest, err := takeGlobalFlags(cmd, args)
			if err != nil {
				return err
			}
			if len(rest) > 0 && (rest[0] == "--help" || rest[0] == "-h") {
				return cmd.Help()
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			code := a.RunCommand(cmd.Context(), append([]string{d.Name}, rest...))
			if err := a.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "stash: warning: %v\n", err)
			}
			if code != command.ExitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}
}

// takeGlobalFlags parses leading persistent flags such as --verbose, which
// cobra hands through untouched when flag parsing is disabled, and returns
// the remaining arguments.
func takeGlobalFlags(cmd *cobra.Command, args []string) ([]string, error) {
	inherited := cmd.InheritedFlags()
	var globals []string
	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		if a == "--" || !strings.HasPrefix(a, "-") {
			break
		}
		name, _, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		var f *pflag.Flag
		if strings.HasPrefix(a, "--") {
			f = inherited.Lookup(name)
		} else if len(name) == 1 {
			f = inherited.ShorthandLookup(name)
		}
		if f == nil {
			break
		}
		globals = append(globals, a)
		if f.Value.Type() != "bool" && !hasValue && i+1 < len(args) {
			i++
			globals = append(globals, args[i])
		}
	}
	if err := inherited.Parse(globals); err != nil {
		return nil, err
	}
	return args[i:], nil
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration, catalog, vault and keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Encryption.Type, _ = cmd.Flags().GetString("encryption")
		cfg.Vault.Type, _ = cmd.Flags().GetString("vault")
		if cfg.Vault.Type == "s3" {
			cfg.Vault.S3Bucket, _ = cmd.Flags().GetString("s3-bucket")
			cfg.Vault.S3Region, _ = cmd.Flags().GetString("s3-region")
			cfg.Vault.S3Endpoint, _ = cmd.Flags().GetString("s3-endpoint")
			cfg.Vault.Name = cfg.Vault.S3Bucket
		}

		if err := config.Init(configPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		a, err := app.New(cmd.Context(), cfg, app.Options{Verbose: verbose})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(cmd.Context()); err != nil {
			return err
		}
		if cfg.Encryption.Type == "age" {
			pass, err := newPassphrase()
			if err != nil {
				return err
			}
			if err := a.SetupEncryption(pass); err != nil {
				return err
			}
		}

		fmt.Printf("Configuration initialized at %s\n", configPath)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Vault:      %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

// newPassphrase asks for a passphrase twice unless it comes from the environment.
func newPassphrase() (string, error) {
	pass, err := app.ReadPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	if os.Getenv(app.PassphraseEnv) != "" {
		return pass, nil
	}
	again, err := app.ReadPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != again {
		return "", fmt.Errorf("passphrases do not match")
	}
	return pass, nil
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ReadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", configPath)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s (level %s)\n", cfg.LogDir, cfg.LogLevel)
		fmt.Printf("Catalog:    %s %s\n", cfg.Catalog.Type, cfg.Catalog.DataDir)
		fmt.Printf("Vault:      %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Timeout:    %s, %d attempt(s)\n", cfg.Client.Timeout, cfg.Client.RetryAttempts)
		if cfg.MetricsFile != "" {
			fmt.Printf("Metrics:    %s\n", cfg.MetricsFile)
		}
		return nil
	},
}

func init() {
	defaultConfig := ""
	if defaults, err := app.GetDefaults(); err == nil {
		defaultConfig = defaults["config_path"]
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also write log lines to stderr")

	configInitCmd.Flags().String("encryption", "none", "payload encryption: none or age")
	configInitCmd.Flags().String("vault", "filesystem", "vault type: filesystem or s3")
	configInitCmd.Flags().String("s3-bucket", "", "S3 bucket (vault=s3)")
	configInitCmd.Flags().String("s3-region", "", "S3 region (vault=s3)")
	configInitCmd.Flags().String("s3-endpoint", "", "custom S3 endpoint, e.g. MinIO (vault=s3)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(shellCmd)
	for _, d := range command.Verbs() {
		rootCmd.AddCommand(newVerbCmd(d))
	}
}

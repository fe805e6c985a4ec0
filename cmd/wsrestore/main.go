package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"wsrestore/internal/app"
	"wsrestore/internal/config"
	"wsrestore/internal/restore"
	"wsrestore/internal/snapshot"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// loadConfig reads the config file, falling back to defaults when there is
// none, with environment overrides applied.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp loads the config and creates a WSRestoreApp. The caller must defer app.Close().
// operation identifies the CLI command being run.
func newApp(cmd *cobra.Command, operation, parameters string) (*app.WSRestoreApp, *config.Config, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if name, _ := cmd.Flags().GetString("file"); name != "" {
		cfg.Import.SnapshotFile = name
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := app.NewWSRestoreApp(cfg, app.Options{
		Operation:  operation,
		Parameters: parameters,
		Verbose:    verbose,
		Passphrase: promptPassphrase,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, cfg, nil
}

var rootCmd = &cobra.Command{
	Use:           "wsrestore",
	Short:         "Restore a workspace export into a database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env.local is loaded first so its values win.
		if _, err := config.LoadEnvFiles(".env.local", ".env"); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Import the export in DIR into the configured database",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return usageError(fmt.Errorf("resolving path: %w", err))
		}

		a, cfg, err := newApp(cmd, "import", dir)
		if err != nil {
			return err
		}
		defer a.Close()

		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		prune, _ := cmd.Flags().GetBool("prune-orphans")
		reuse, _ := cmd.Flags().GetBool("reuse-default-collections")

		opts := restore.Options{
			Overwrite:               force,
			DryRun:                  dryRun,
			PruneOrphans:            prune || cfg.Import.PruneOrphans,
			ReuseDefaultCollections: reuse || cfg.Import.ReuseDefaultCollections,
		}

		summary, err := a.Import(cmd.Context(), dir, opts)
		if err != nil {
			if errors.Is(err, restore.ErrExistingData) {
				return withCode(exitExistingData, fmt.Errorf("%w; rerun with --force to overwrite", err))
			}
			return err
		}

		fmt.Println()
		return restore.WriteSummary(os.Stdout, summary)
	},
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check DIR",
	Short: "Inspect the export in DIR without importing it",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, "check", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Check(args[0])
		if err != nil {
			return err
		}
		if err := snapshot.WriteReport(os.Stdout, report); err != nil {
			return err
		}
		if report.Total == 0 {
			return withCode(exitSnapshot, fmt.Errorf("export in %s is empty", args[0]))
		}
		return nil
	},
}

// seal command
var sealCmd = &cobra.Command{
	Use:   "seal FILE",
	Short: "Encrypt an export for the configured public key",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd, "seal", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Seal(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Sealed export written to %s\n", out)
		fmt.Println("The plaintext file was left in place; delete it once the sealed copy is stored.")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the key pair for sealed exports",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a passphrase-protected key pair",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.NewWSRestoreApp(cfg, app.Options{
			Operation:  "keys init",
			Passphrase: promptNewPassphrase,
		})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		if err := a.KeysInit(); err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Database:      %s\n", cfg.Database.Type)
		switch cfg.Database.Type {
		case "postgres":
			fmt.Printf("  URL:         %s\n", redactURL(cfg.Database.URL))
		case "sqlite":
			fmt.Printf("  Path:        %s\n", cfg.Database.Path)
		}
		fmt.Printf("Files:         %s\n", cfg.Files.Type)
		switch cfg.Files.Type {
		case "filesystem":
			fmt.Printf("  Root:        %s\n", cfg.Files.Root)
		case "s3":
			fmt.Printf("  Bucket:      %s/%s\n", cfg.Files.S3Bucket, cfg.Files.S3Prefix)
		}
		fmt.Printf("Snapshot file: %s\n", cfg.Import.SnapshotFile)
		fmt.Printf("Public key:    %s\n", cfg.Encryption.PublicKeyPath)
		return nil
	},
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	return u.Redacted()
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	// import flags
	importCmd.Flags().BoolP("force", "f", false, "Overwrite a destination that already has data")
	importCmd.Flags().BoolP("verbose", "v", false, "Log every dropped or failed record")
	importCmd.Flags().Bool("dry-run", false, "Load into an in-memory rehearsal database instead of the destination")
	importCmd.Flags().Bool("prune-orphans", false, "Delete rows whose owning parent is missing after the load")
	importCmd.Flags().Bool("reuse-default-collections", false, "Create at most one fallback collection per team")
	importCmd.Flags().String("file", "", "Export file name inside DIR (default from config)")

	checkCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
	checkCmd.Flags().String("file", "", "Export file name inside DIR (default from config)")

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(sealCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(configCmd)
}

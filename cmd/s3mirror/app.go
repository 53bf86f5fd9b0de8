package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/openmined/s3mirror/internal/blob"
	"github.com/openmined/s3mirror/internal/config"
	"github.com/openmined/s3mirror/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "S3MIRROR"
	configFileName = "s3mirror"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	v         *viper.Viper
	cfg       *config.Config
	logger    *slog.Logger
	closeLogs func() error

	// swapped in tests
	openStore func(ctx context.Context, cfg *blob.S3BlobConfig) (blob.IBlobClient, error)
}

func newApp() *app {
	return &app{
		v:         viper.New(),
		closeLogs: func() error { return nil },
		openStore: blob.New,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "s3mirror",
		Short:         "Mirror an HTTP directory listing into an S3 bucket",
		Version:       version.Detailed(),
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().SortFlags = false
	root.PersistentFlags().StringP("config", "c", "", "config file (default ~/.s3mirror/s3mirror.{yaml,json})")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-file", "", "also write logs to this file")
	root.PersistentFlags().String("lock-file", config.DefaultLockFile, "lock file guarding against concurrent runs; empty disables")

	root.AddCommand(a.syncCmd())
	root.AddCommand(a.fetchCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// setup loads configuration and builds the logger once flags are parsed.
func (a *app) setup(cmd *cobra.Command) error {
	if err := a.loadConfig(cmd); err != nil {
		return err
	}
	a.cfg = config.FromViper(a.v)

	level, err := config.ParseLogLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}

	logger, closeLogs, err := newLogger(cmd.OutOrStdout(), level, a.cfg.LogFile)
	if err != nil {
		return err
	}
	a.logger = logger.With("cmd", cmd.Name())
	a.closeLogs = closeLogs

	if a.cfg.Path != "" {
		a.logger.Debug("config loaded", "path", a.cfg.Path)
	}
	return nil
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	v := a.v
	config.SetDefaults(v)

	if f := cmd.Flag("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	} else {
		v.AddConfigPath(config.DefaultDir)
		v.AddConfigPath(".")
		v.SetConfigName(configFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	// flag names use dashes, config and env keys use underscores
	var bindErr error
	bind := func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" || f.Name == "version" {
			return
		}
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
			bindErr = err
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	if bindErr != nil {
		return bindErr
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return nil
}

// addDestinationFlags registers the bucket flags shared by sync and fetch.
func addDestinationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("bucket", "b", "", "destination bucket")
	cmd.Flags().String("region", blob.DefaultRegion, "destination region")
	cmd.Flags().String("endpoint", "", "custom S3-compatible endpoint url")
	cmd.Flags().String("backend", blob.BackendS3, "destination backend: s3, minio, memory")
	cmd.Flags().String("access-key", "", "access key id (default: ambient credential chain)")
	cmd.Flags().String("secret-key", "", "secret access key (default: ambient credential chain)")
	cmd.Flags().Bool("use-accelerate", false, "use S3 transfer acceleration")
	cmd.Flags().BoolP("dry-run", "n", false, "report what would change without writing to the bucket")
}

func writeLine(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

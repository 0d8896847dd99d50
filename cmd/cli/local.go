package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/app"
	"github.com/yourusername/archivist-go/internal/bootstrap"
	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/internal/infrastructure"
	"github.com/yourusername/archivist-go/pkg/logger"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download every planned file of the configured object types",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(cmd, domain.RunKindDownload)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check downloaded files against server checksums and sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(cmd, domain.RunKindValidate)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}

		cfg := domain.DefaultConfig()
		cfg.Archive.Objects = []domain.ObjectConfig{{Name: "Account", DirNameField: "Name"}}
		if err := app.SaveConfig(cfg, path); err != nil {
			return err
		}
		fmt.Printf("Config written to %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	for _, cmd := range []*cobra.Command{downloadCmd, validateCmd} {
		cmd.Flags().Bool("no-progress", false, "Only print the final summary")
	}
}

// runLocal executes one run in-process. Ctrl-C stops scheduling new items and
// waits for in-flight ones so the index is saved consistently.
func runLocal(cmd *cobra.Command, kind domain.RunKind) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	config, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  config.Logging.Level,
		Format: config.Logging.Format,
		// stdout carries the progress lines
		OutputPath: stderrIfStdout(config.Logging.OutputPath),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Archive.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize run logs: %w", err)
	}
	defer multiLog.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := bootstrap.NewArchivistFactory(ctx, config, afero.NewOsFs(), log)
	runMgr := app.NewRunManager(ctx, factory,
		infrastructure.NewNotificationService(&config.Notification, log), multiLog, log)

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if !noProgress {
		runMgr.WithObserver(newProgressPrinter(os.Stdout, kind == domain.RunKindDownload))
	}

	started, err := runMgr.Start(kind)
	if err != nil {
		return err
	}
	runMgr.Wait()

	run, err := runMgr.Get(started.ID)
	if err != nil {
		return err
	}
	fmt.Println(run.Summary)

	if run.Status != domain.RunStatusSucceeded {
		if run.Error != "" {
			log.Error("Run did not complete", zap.String("status", string(run.Status)), zap.String("error", run.Error))
		}
		return errRunFailed
	}
	return nil
}

func stderrIfStdout(path string) string {
	if path == "" || path == "stdout" {
		return "stderr"
	}
	return path
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/noahsroberts/invitekit/internal/app"
	"github.com/noahsroberts/invitekit/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("invitekit", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var (
		configPath   string
		checkMode    bool
		historyMode  bool
		historyState string
		historyLimit int
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")
	fs.BoolVar(&checkMode, "check", false, "Validate configuration and backend connectivity, then exit")
	fs.BoolVar(&historyMode, "history", false, "List recorded provisioning attempts, then exit")
	fs.StringVar(&historyState, "history-state", "", "Filter history output to one attempt state")
	fs.IntVar(&historyLimit, "history-limit", 20, "Maximum history entries to print (0 for all)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	if err := cfg.Validate(); err != nil {
		return err
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	switch {
	case checkMode:
		return runCheck(ctx, rt, stdout)
	case historyMode:
		return runHistory(ctx, rt, historyState, historyLimit, stdout)
	default:
		return runInvite(ctx, rt, bufio.NewReader(stdin), stdout)
	}
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

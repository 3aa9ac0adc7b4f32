// Package daemonrun wires configuration, stores, workflow, and IPC into a
// running platend process.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"platen/internal/catalog"
	"platen/internal/config"
	"platen/internal/daemon"
	"platen/internal/dispatch"
	"platen/internal/ipc"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/quotes"
	"platen/internal/slicing"
)

// Run starts the platen daemon runtime loop and blocks until shutdown.
func Run(cmdCtx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "platend.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	catalogStore, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}
	defer catalogStore.Close()

	jobStore, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer jobStore.Close()

	workflow, err := slicing.New(cfg, jobStore, catalogStore, logger)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	resolver := quotes.NewResolver(catalogStore, jobStore, logger)
	workflow.SetQuoteRefresher(resolver)

	dispatcher := dispatch.New(cfg, jobStore, workflow, logger)

	d, err := daemon.New(cfg, jobStore, catalogStore, resolver, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, ipc.SocketPath(cfg), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if addr := d.APIAddr(); addr != "" {
		logger.Info("HTTP API listening", logging.String("address", addr))
	}

	<-signalCtx.Done()
	logger.Info("platen daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

package ipc

import (
	"path/filepath"

	"platen/internal/config"
)

// SocketPath returns the daemon control socket location for the given config.
func SocketPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "platend.sock")
}

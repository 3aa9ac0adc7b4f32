package config

const (
	defaultDataDir            = "~/.local/share/platen"
	defaultModelsDir          = "~/.local/share/platen/models"
	defaultWorkspaceDir       = "~/.local/share/platen/workspaces"
	defaultLogDir             = "~/.local/share/platen/logs"
	defaultAPIBind            = "127.0.0.1:7499"
	defaultSlicerBinary       = "orca-slicer"
	defaultSlicerTimeout      = 900
	defaultOutputExtension    = ".gcode"
	defaultMaxOutputBytes     = 10 * 1024 * 1024
	defaultQueuePollInterval  = 60
	defaultErrorRetryInterval = 10
	defaultLeaseTimeout       = 1800
	defaultMaxAttempts        = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ModelsDir:    defaultModelsDir,
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Slicer: Slicer{
			Binary:          defaultSlicerBinary,
			Timeout:         defaultSlicerTimeout,
			OutputExtension: defaultOutputExtension,
			MaxOutputBytes:  defaultMaxOutputBytes,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			LeaseTimeout:       defaultLeaseTimeout,
			MaxAttempts:        defaultMaxAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

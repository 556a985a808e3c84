package logging

import (
	"log/slog"
)

// SetupStdioMode initializes logging for the tool server's stdio transport.
// This is critical for JSON-RPC protocol compliance:
// - Logs ONLY to file (never stdout/stderr)
// - Uses JSON format for structured logs
// - Always enables debug level for complete diagnostics
//
// The tool server speaks JSON-RPC 2.0 over stdout; any other write to
// stdout or stderr corrupts the stream and causes the calling agent's
// connection attempt to fail.
func SetupStdioMode() (func(), error) {
	cfg := Config{
		Level:         "debug", // Always debug in stdio mode for full diagnostics
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false, // Never write to stderr while the stdio transport is live
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	slog.Info("stdio mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}

// SetupStdioModeWithLevel initializes stdio-safe logging with a specific level.
func SetupStdioModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Seednode/spinbox/tui"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// tuiLogger keeps log output off the terminal while bubbletea owns the
// screen. Without a path everything is discarded.
func tuiLogger(cfg *Config, path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(io.Discard), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open tui log: %w", err)
	}

	return newLoggerTo(cfg, f), func() { _ = f.Close() }, nil
}

func newTUICmd(cfg *Config) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the spinner in the terminal instead of serving it over HTTP.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateSpinner(); err != nil {
				return err
			}

			logger, closeLog, err := tuiLogger(cfg, logFile)
			if err != nil {
				return err
			}
			defer closeLog()

			logger.Debug("START: spinbox tui", "version", releaseVersion)

			return tui.Run(tui.Options{
				Duration:    cfg.spinDuration,
				FrameRate:   cfg.frameRate,
				SuggestOpts: cfg.suggestOptions(),
				Logger:      logger,
			})
		},
	}

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVar(&logFile, "log-file", "", "write logs to this file while the tui runs, discarded if unset (env: SPINBOX_LOG_FILE)")

	return cmd
}

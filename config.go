/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/spinbox/roster"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	frameRate      int
	maxGroupSize   int
	metrics        bool
	minGroupSize   int
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	spinDuration   time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	logger *log.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	return c.validateSpinner()
}

// validateSpinner checks the settings shared by the web and terminal front ends.
func (c *Config) validateSpinner() error {
	if c.frameRate < 1 || c.frameRate > 240 {
		return fmt.Errorf("invalid frame rate (must be between 1-240 inclusive): %d", c.frameRate)
	}
	if c.spinDuration <= 0 {
		return fmt.Errorf("invalid spin duration (must be positive): %s", c.spinDuration)
	}
	if c.minGroupSize < 1 {
		return fmt.Errorf("invalid minimum group size (must be at least 1): %d", c.minGroupSize)
	}
	if c.maxGroupSize > 0 && c.maxGroupSize < c.minGroupSize {
		return fmt.Errorf("maximum group size %d is smaller than minimum group size %d", c.maxGroupSize, c.minGroupSize)
	}
	return nil
}

func (c *Config) suggestOptions() []roster.SuggestOption {
	opts := []roster.SuggestOption{roster.WithMinSize(c.minGroupSize)}
	if c.maxGroupSize > 0 {
		opts = append(opts, roster.WithMaxSize(c.maxGroupSize))
	}
	return opts
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindEnv lets every flag on fs be set from a SPINBOX_* environment variable.
func bindEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix("SPINBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

func newCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "spinbox",
		Short:         "Spin a wheel of names and sort them into evenly sized groups.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindEnv(cmd.Flags())
			cfg.logger = newLogger(cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	normalizeFlags(pfs)

	pfs.IntVar(&cfg.frameRate, "frame-rate", 60, "animation frames per second (env: SPINBOX_FRAME_RATE)")
	pfs.IntVar(&cfg.maxGroupSize, "max-group-size", 0, "largest group to suggest, 0 for unbounded (env: SPINBOX_MAX_GROUP_SIZE)")
	pfs.IntVar(&cfg.minGroupSize, "min-group-size", 2, "smallest group to suggest (env: SPINBOX_MIN_GROUP_SIZE)")
	pfs.DurationVar(&cfg.spinDuration, "spin-duration", 5*time.Second, "how long each spin animates (env: SPINBOX_SPIN_DURATION)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SPINBOX_VERBOSE)")

	fs := cmd.Flags()
	normalizeFlags(fs)

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SPINBOX_BIND)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "serve prometheus metrics at /metrics (env: SPINBOX_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SPINBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SPINBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SPINBOX_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle spinner sessions are ended (env: SPINBOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SPINBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SPINBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SPINBOX_VERSION)")

	cmd.AddCommand(newTUICmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("spinbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

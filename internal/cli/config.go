// Package cli holds the flag and environment handling shared by the catalog
// commands.
package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/mcp-remote-catalog/pkg/logging"
)

// EnvPrefix prefixes every environment variable, e.g. MCPCATALOG_LOG_LEVEL.
const EnvPrefix = "MCPCATALOG"

// Flag names shared by both commands.
const (
	FlagOutput         = "output"
	FlagLogLevel       = "log-level"
	FlagLogPretty      = "log-pretty"
	FlagPushgatewayURL = "pushgateway-url"
	FlagBaseURL        = "base-url"
	FlagTimeout        = "timeout"
	FlagUserAgent      = "user-agent"
)

// Defaults are the per-command default values of the common flags.
type Defaults struct {
	Output    string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Settings is the resolved configuration of one run.
type Settings struct {
	Output         string
	LogLevel       string
	LogPretty      bool
	PushgatewayURL string
	BaseURL        string
	Timeout        time.Duration
	UserAgent      string
}

// AddCommonFlags registers the flags every catalog command accepts.
func AddCommonFlags(cmd *cobra.Command, d Defaults) {
	flags := cmd.Flags()
	flags.StringP(FlagOutput, "o", d.Output, "path of the JSON output file")
	flags.String(FlagLogLevel, string(logging.LevelInfo), "log level (debug, info, warn, error)")
	flags.Bool(FlagLogPretty, false, "human-readable console logs instead of JSON")
	flags.String(FlagPushgatewayURL, "", "Prometheus Pushgateway URL (empty disables the push)")
	flags.String(FlagBaseURL, d.BaseURL, "source base URL")
	flags.Duration(FlagTimeout, d.Timeout, "per-request timeout")
	flags.String(FlagUserAgent, d.UserAgent, "User-Agent header sent with every request")
}

// NewViper returns a viper instance bound to the command's flags and to
// MCPCATALOG_* environment variables. Explicit flags win over the
// environment, which wins over flag defaults.
func NewViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

// Load resolves the common settings from v.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Output:         v.GetString(FlagOutput),
		LogLevel:       v.GetString(FlagLogLevel),
		LogPretty:      v.GetBool(FlagLogPretty),
		PushgatewayURL: v.GetString(FlagPushgatewayURL),
		BaseURL:        v.GetString(FlagBaseURL),
		Timeout:        v.GetDuration(FlagTimeout),
		UserAgent:      v.GetString(FlagUserAgent),
	}

	if s.Output == "" {
		return s, fmt.Errorf("--%s must not be empty", FlagOutput)
	}
	if s.Timeout <= 0 {
		return s, fmt.Errorf("--%s must be positive (got %s)", FlagTimeout, s.Timeout)
	}
	if s.UserAgent == "" {
		return s, fmt.Errorf("--%s must not be empty", FlagUserAgent)
	}
	return s, nil
}

// SetupLogging configures the global logger to write to w, or to the
// default stderr output when w is nil.
func (s Settings) SetupLogging(w io.Writer) zerolog.Logger {
	cfg := logging.DefaultConfig()
	if s.LogLevel != "" {
		cfg.Level = logging.LogLevel(s.LogLevel)
	}
	cfg.Pretty = s.LogPretty
	if w != nil {
		cfg.Output = w
	}
	return logging.Setup(cfg)
}

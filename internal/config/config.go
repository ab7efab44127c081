// Package config defines the server's command-line/env configuration,
// following the teacher's cobra+pflag+viper wiring.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every knob the server reads at startup.
type Config struct {
	Bind    string
	Port    int
	Prefix  string
	Profile bool
	Verbose bool
	Version bool

	StoreURI string
	StoreDB  string

	JWTSecret string

	SocketGrace       time.Duration
	HeartbeatInterval time.Duration

	UploadDir       string
	UploadMaxBytes  int64
	PlayerLimitCap  int
	ChaosMode       float64

	TLSCert string
	TLSKey  string
}

func (c *Config) Validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("--jwt-secret must not be empty")
	}
	if c.SocketGrace <= 0 {
		return errors.New("--socket-grace must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("--heartbeat-interval must be positive")
	}
	if c.PlayerLimitCap < 2 {
		return errors.New("--player-limit-cap must be at least 2")
	}
	if c.ChaosMode < 0 || c.ChaosMode > 1 {
		return errors.New("--chaos-probability must be between 0 and 1")
	}
	return nil
}

func (c *Config) Scheme() string {
	if c.TLSCert != "" && c.TLSKey != "" {
		return "https"
	}
	return "http"
}

// NewCmd builds the cobra root command, in the teacher's shape: flags bound
// through viper with an env prefix and "-"/"_" normalization, values
// re-applied onto the flag set before RunE fires.
func NewCmd(cfg *Config, run func(cmd *cobra.Command, args []string, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BUSD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "busd",
		Short:         "Authoritative realtime backend for the Busfahrer drinking card game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, args, cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BUSD_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BUSD_PORT)")
	fs.StringVar(&cfg.Prefix, "prefix", "", "path shown in the startup log's listen URL; routes are registered without it (env: BUSD_PREFIX)")
	fs.BoolVar(&cfg.Profile, "profile", false, "register net/http/pprof handlers (env: BUSD_PROFILE)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: BUSD_VERBOSE)")
	fs.BoolVarP(&cfg.Version, "version", "V", false, "display version and exit (env: BUSD_VERSION)")

	fs.StringVar(&cfg.StoreURI, "store-uri", "", "mongodb connection string; empty selects the in-memory store (env: BUSD_STORE_URI)")
	fs.StringVar(&cfg.StoreDB, "store-db", "busfahrer", "mongodb database name (env: BUSD_STORE_DB)")

	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HMAC secret used to sign/validate bearer tokens (env: BUSD_JWT_SECRET)")

	fs.DurationVar(&cfg.SocketGrace, "socket-grace", 15*time.Second, "grace period before an abandoned socket triggers a leave (env: BUSD_SOCKET_GRACE)")
	fs.DurationVar(&cfg.HeartbeatInterval, "heartbeat-interval", 30*time.Second, "interval between websocket heartbeat pings (env: BUSD_HEARTBEAT_INTERVAL)")

	fs.StringVar(&cfg.UploadDir, "upload-dir", "./uploads", "directory avatar/audio uploads are written to (env: BUSD_UPLOAD_DIR)")
	fs.Int64Var(&cfg.UploadMaxBytes, "upload-max-bytes", 5<<20, "maximum accepted upload size in bytes (env: BUSD_UPLOAD_MAX_BYTES)")
	fs.IntVar(&cfg.PlayerLimitCap, "player-limit-cap", 10, "hard ceiling on lobby settings.playerLimit (env: BUSD_PLAYER_LIMIT_CAP)")
	fs.Float64Var(&cfg.ChaosMode, "chaos-probability", 0.3, "validated to [0,1] but not passed to the game service; phase 1 chaos rolls use the fixed game.ChaosProbability (env: BUSD_CHAOS_PROBABILITY)")

	fs.StringVar(&cfg.TLSCert, "tls-cert", "", "path to tls certificate (env: BUSD_TLS_CERT)")
	fs.StringVar(&cfg.TLSKey, "tls-key", "", "path to tls keyfile (env: BUSD_TLS_KEY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

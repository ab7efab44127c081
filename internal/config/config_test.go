package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:              8080,
		JWTSecret:         "secret",
		SocketGrace:       15 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		PlayerLimitCap:    10,
		ChaosMode:         0.3,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptySecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	cfg := validConfig()
	cfg.SocketGrace = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.HeartbeatInterval = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPlayerLimitCapBelowTwo(t *testing.T) {
	cfg := validConfig()
	cfg.PlayerLimitCap = 1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsChaosModeOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.ChaosMode = 1.5
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.ChaosMode = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMismatchedTLSPair(t *testing.T) {
	cfg := validConfig()
	cfg.TLSCert = "cert.pem"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.TLSKey = "key.pem"
	assert.Error(t, cfg.Validate())
}

func TestSchemeReflectsTLSConfiguration(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "http", cfg.Scheme())

	cfg.TLSCert = "cert.pem"
	cfg.TLSKey = "key.pem"
	assert.Equal(t, "https", cfg.Scheme())
}

func TestNewCmdBindsDefaultFlagsAndRunsOnValidConfig(t *testing.T) {
	cfg := &Config{}
	var ran *Config
	cmd := NewCmd(cfg, func(cmd *cobra.Command, args []string, c *Config) error {
		ran = c
		return nil
	})
	cmd.SetArgs([]string{"--jwt-secret", "secret"})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, ran)
	assert.Equal(t, "secret", ran.JWTSecret)
	assert.Equal(t, 8080, ran.Port)
	assert.Equal(t, "0.0.0.0", ran.Bind)
}

func TestNewCmdFailsValidationWithoutSecret(t *testing.T) {
	cfg := &Config{}
	cmd := NewCmd(cfg, func(cmd *cobra.Command, args []string, c *Config) error {
		return nil
	})
	cmd.SetArgs([]string{})

	assert.Error(t, cmd.Execute())
}

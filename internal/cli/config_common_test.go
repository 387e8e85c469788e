package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyload/skyload/internal/config"
	"github.com/skyload/skyload/internal/logging"
	"github.com/skyload/skyload/pkg/skyload"
)

// newGlobalFlagsCmd returns a standalone command carrying the root
// persistent flags.
func newGlobalFlagsCmd(t *testing.T, args map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().BoolP("verbose", "v", false, "")
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("log-format", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().Duration("timeout", time.Minute, "")
	for name, value := range args {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd
}

func TestLoadProjectConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
connection:
  host: db.internal
  database: sky
load:
  batch_size: 500
  classes: [STAR, GALAXY, QSO]
timeout: 45m
`), 0o644))

	cfg, err := loadProjectConfig(newGlobalFlagsCmd(t, map[string]string{"config": path}))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "db.internal", cfg.Connection.Host)
	assert.Equal(t, 500, cfg.Load.BatchSize)
	assert.Equal(t, []string{"STAR", "GALAXY", "QSO"}, cfg.Load.Classes)
	assert.Equal(t, "45m", cfg.Timeout)
}

func TestLoadProjectConfig_MissingExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := loadProjectConfig(newGlobalFlagsCmd(t, map[string]string{"config": path}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, skyload.ErrInvalidConfig))
}

func TestLoadProjectConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("load: [unterminated"), 0o644))

	_, err := loadProjectConfig(newGlobalFlagsCmd(t, map[string]string{"config": path}))
	require.Error(t, err)
	assert.Equal(t, skyload.ExitConfigError, skyload.ExitCodeForError(err))
}

func TestResolveEffectiveTimeout(t *testing.T) {
	projectCfg := &config.ProjectConfig{Timeout: "2h"}

	got, err := resolveEffectiveTimeout(newGlobalFlagsCmd(t, nil), projectCfg, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, got, "project file applies when the flag is unset")

	cmd := newGlobalFlagsCmd(t, map[string]string{"timeout": "5s"})
	got, err = resolveEffectiveTimeout(cmd, projectCfg, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, got, "flag wins when set")

	got, err = resolveEffectiveTimeout(newGlobalFlagsCmd(t, nil), nil, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, got)
}

func TestNewLogger(t *testing.T) {
	logger, flush, err := newLogger(newGlobalFlagsCmd(t, nil), nil)
	require.NoError(t, err)
	defer flush()
	assert.IsType(t, &logging.ConsoleLogger{}, logger)

	logger, flush, err = newLogger(newGlobalFlagsCmd(t, map[string]string{"log-format": "json"}), nil)
	require.NoError(t, err)
	defer flush()
	assert.IsType(t, &logging.ZapLogger{}, logger)

	projectCfg := &config.ProjectConfig{Log: config.LogConfig{Level: "warn"}}
	logger, flush, err = newLogger(newGlobalFlagsCmd(t, nil), projectCfg)
	require.NoError(t, err)
	defer flush()
	assert.IsType(t, &logging.ZapLogger{}, logger, "a log level selects structured logging")

	_, _, err = newLogger(newGlobalFlagsCmd(t, map[string]string{"log-format": "xml"}), nil)
	require.Error(t, err)
	assert.Equal(t, skyload.ExitConfigError, skyload.ExitCodeForError(err))
}

func TestCommandContext(t *testing.T) {
	ctx, cancel := commandContext(10*time.Millisecond, "test")
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by its timeout")
	}

	ctx, cancel = commandContext(0, "test")
	_, hasDeadline = ctx.Deadline()
	assert.False(t, hasDeadline, "zero timeout means no deadline")
	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestResolveConnectionFromFlags_CloudAuth(t *testing.T) {
	clearConnectionEnv(t)

	resolved, err := resolveConnectionFromFlags(connectionFlags{
		host:      "sky.abc.eu-west-1.rds.amazonaws.com",
		username:  "loader",
		database:  "sky",
		aws:       true,
		awsRegion: "eu-west-1",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, skyload.AuthMethodAWSIAM, resolved.ConnConfig.AuthMethod)
	assert.Equal(t, "eu-west-1", resolved.ConnConfig.AWSRegion)

	_, err = resolveConnectionFromFlags(connectionFlags{
		database: "sky",
		aws:      true,
		google:   true,
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, skyload.ErrInvalidConfig))
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BC_TENANT_ID", "tenant")
	t.Setenv("BC_CLIENT_ID", "client")
	t.Setenv("BC_CLIENT_SECRET", "secret")
	t.Setenv("BC_ENVIRONMENT", "sandbox")
	t.Setenv("BC_COMPANY_NAME", "Acme")
}

func TestLoadWithDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "sandbox", cfg.BusinessCentral.Environment)
	assert.Equal(t, "warehouseExt", cfg.BusinessCentral.APIPublisher)
	assert.Equal(t, "lotpilot", cfg.MongoDB.DBName)
	assert.NotEmpty(t, cfg.Intake.CronSchedule)
}

func TestLoadMissingBCCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BC_TENANT_ID", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BC_TENANT_ID")
}

func TestIntakeEnabled(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.IntakeEnabled())

	t.Setenv("GRAPH_TENANT_ID", "tenant")
	t.Setenv("GRAPH_CLIENT_ID", "client")
	t.Setenv("GRAPH_CLIENT_SECRET", "secret")
	t.Setenv("GRAPH_DRIVE_ID", "drive")
	t.Setenv("ANTHROPIC_API_KEY", "key")

	cfg, err = Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IntakeEnabled())
}

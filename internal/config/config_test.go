package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/order-desk/pkg/util"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("ADMIN_USER_IDS", " 100, 200 ,,300")
	t.Setenv("START_CHANNEL_ID", "intake")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "200", "300"}, cfg.Workflow.AdminIDs)
	assert.Equal(t, "intake", cfg.Workflow.IntakeChannelID)
	assert.Equal(t, "st-", cfg.Workflow.OrderPrefix)
	assert.Equal(t, "Archived Orders", cfg.Workflow.ArchiveCategory)
	assert.Equal(t, 5*time.Second, cfg.Workflow.GraceDelay())
	assert.Equal(t, CounterBackendFile, cfg.Counter.Backend)
	assert.Equal(t, "order_counter.json", cfg.Counter.FilePath)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadMissingCredential(t *testing.T) {
	setRequired(t)
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, apperrors.CodeConfigInvalid, domainErr.Code)
}

func TestLoadMissingAdmins(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_USER_IDS", " , ")

	_, err := Load()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, []string{"ADMIN_USER_IDS"}, de.Details["keys"])
}

func TestValidateCounterBackend(t *testing.T) {
	setRequired(t)

	t.Setenv("COUNTER_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err, "postgres backend without a DSN")

	t.Setenv("POSTGRES_DSN", "postgres://localhost/orders")
	_, err = Load()
	require.NoError(t, err)

	t.Setenv("COUNTER_BACKEND", "etcd")
	_, err = Load()
	require.Error(t, err)
}

func TestValidateNegativeGrace(t *testing.T) {
	setRequired(t)
	t.Setenv("NOT_DOABLE_GRACE_SECONDS", "-1")

	_, err := Load()
	require.Error(t, err)
}

package telemetry_test

import (
	"context"
	"testing"

	"knowledge-rag/internal/infra/config"
	"knowledge-rag/internal/infra/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProvider_Disabled(t *testing.T) {
	shutdown, err := telemetry.InitProvider(context.Background(), config.OTelConfig{Enabled: false}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

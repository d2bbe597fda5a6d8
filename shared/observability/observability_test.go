package observability

import (
	"context"
	"testing"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestServiceResource_MergesWithDefault(t *testing.T) {
	res, err := serviceResource("licenseguard")
	require.NoError(t, err)

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "licenseguard", name.AsString())
	assert.Equal(t, semconv.SchemaURL, res.SchemaURL())
}

func TestSetupTracing(t *testing.T) {
	shutdown, err := SetupTracing("licenseguard")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupMetrics_ExportsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()

	mp, err := SetupMetrics("test-service", reg)
	require.NoError(t, err)
	defer func() { _ = mp.Shutdown(context.Background()) }()

	counter, err := otel.Meter("test").Int64Counter("content_checks_submitted")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "content_checks_submitted_total" {
			found = true
			require.NotEmpty(t, mf.GetMetric())
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

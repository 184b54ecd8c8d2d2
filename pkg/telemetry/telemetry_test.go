package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/telemetry"
)

func TestSetup_SinEndpoint(t *testing.T) {
	tp, shutdown, err := telemetry.Setup(context.Background(), config.TelemetryConfig{ServiceName: "stock-ledger-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	assert.Same(t, tp, otel.GetTracerProvider())
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

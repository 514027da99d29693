package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "notification-service"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
}

func TestConfig_SampleRatioClamped(t *testing.T) {
	assert.Equal(t, 1.0, Config{SampleRatio: 3}.sampleRatio())
	assert.Equal(t, 1.0, Config{SampleRatio: -0.5}.sampleRatio())
	assert.Equal(t, 0.25, Config{SampleRatio: 0.25}.sampleRatio())
}

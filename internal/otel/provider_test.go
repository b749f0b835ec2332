package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())

	counters, err := p.Counters(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, counters)
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutputs(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "artylery"})
	assert.Error(t, err)
}

func TestNew_EnabledCollectsCounters(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "artylery",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	require.NotNil(t, p.LoggerProvider())

	counter, err := otel.Meter("test").Int64Counter("test.shots")
	require.NoError(t, err)
	ctx := context.Background()
	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("outcome", "computed")))
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))

	got, err := p.Counters(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Counter{Name: "test.shots", Attributes: "outcome=computed", Value: 2}, got[0])
	assert.Equal(t, Counter{Name: "test.shots", Attributes: "outcome=rejected", Value: 1}, got[1])

	assert.NoError(t, p.Flush(ctx))
}

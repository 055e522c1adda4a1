package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitWithoutEndpoint(t *testing.T) {
	prev := otel.GetTracerProvider()
	require.NoError(t, Init(context.Background(), Config{TracesEnabled: true}))
	assert.Equal(t, prev, otel.GetTracerProvider())
	assert.Nil(t, shutdownOTEL)
	assert.NoError(t, Close(context.Background()))
}

func TestInitNothingEnabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	require.NoError(t, Init(context.Background(), Config{Endpoint: "127.0.0.1:4317"}))
	assert.Equal(t, prev, otel.GetTracerProvider())
	assert.NoError(t, Close(context.Background()))
}

func TestInitTraces(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	err := Init(context.Background(), Config{
		Endpoint:      "127.0.0.1:4317",
		Insecure:      true,
		TracesEnabled: true,
		SampleRate:    0.5,
	})
	require.NoError(t, err)
	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	assert.NoError(t, Close(context.Background()))
	assert.Nil(t, shutdownOTEL)
}

func TestBuildResources(t *testing.T) {
	attrs := buildResources(Attributes{App: "oauthdance", AppVersion: "1.2.3", OSName: "linux"})
	values := map[string]string{}
	for _, kv := range attrs {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, serviceName, values["service.name"])
	assert.Equal(t, "1.2.3", values["service.version"])
	assert.Equal(t, "linux", values["os.name"])
	assert.Equal(t, "go", values["library.language"])
	assert.Equal(t, "", values["device.id"])
}

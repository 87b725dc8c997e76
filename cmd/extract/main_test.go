package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"voicetask/internal/bootstrap"
	"voicetask/internal/config"
	"voicetask/internal/pkg/logger"
	"voicetask/internal/service"
	"voicetask/pkg/events"
	pktNats "voicetask/pkg/nats"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNats(t *testing.T) string {
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		NoLog:     true,
		NoSigs:    true,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server.ClientURL()
}

// startModel serves a fixed assistant reply on the Ollama chat endpoint.
func startModel(t *testing.T, reply string) string {
	body, err := json.Marshal(map[string]interface{}{
		"model":   "gemma:2b",
		"message": map[string]string{"role": "assistant", "content": reply},
		"done":    true,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestContainer(t *testing.T, natsURL, modelURL string) *bootstrap.Container {
	dir := t.TempDir()
	cfg := &config.Config{
		App: config.AppConfig{
			Port:        "0",
			Environment: "test",
			LogFilePath: filepath.Join(dir, "app.log"),
			NatsURL:     natsURL,
		},
		Store: config.StoreConfig{Driver: bootstrap.StoreMemory, MaxRetries: 3},
		Ai: config.AIConfig{
			LLMProvider:   "ollama",
			LLMModel:      "gemma:2b",
			OllamaBaseURL: modelURL,
			RatePerMinute: 60,
		},
		Voice: config.VoiceConfig{
			Locale:      "en-US",
			LogFilePath: filepath.Join(dir, "voice.log"),
		},
	}

	c, err := bootstrap.NewContainer(context.Background(), cfg,
		bootstrap.WithLogger(logger.NewNopLogger()),
		bootstrap.WithBlockingBus(),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	require.NotNil(t, c.NatsConn)
	return c
}

// lastEvent reads the newest stream message for an event type without waiting.
func lastEvent(t *testing.T, c *bootstrap.Container, eventType string) map[string]interface{} {
	ctx := context.Background()
	stream, err := c.NatsConn.JetStream().Stream(ctx, pktNats.StreamName)
	require.NoError(t, err)

	msg, err := stream.GetLastMsgForSubject(ctx, pktNats.SubjectPrefix+eventType)
	require.NoError(t, err, "no %s event on the stream", eventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	return payload
}

func TestExtractOnce_PublishesTasksExtracted(t *testing.T) {
	c := newTestContainer(t,
		startNats(t),
		startModel(t, `{"message":"Added one task","addTasks":[{"task":"buy milk"}]}`),
	)

	outcome, err := extractOnce(context.Background(), c, "remind me to buy milk")
	require.NoError(t, err)
	require.Len(t, outcome.Added, 1)

	payload := lastEvent(t, c, events.TasksExtracted)
	assert.Equal(t, outcome.RunId, payload["run_id"])
	assert.Equal(t, service.SourceTyped, payload["source"])
	assert.EqualValues(t, 1, payload["added"])
	assert.EqualValues(t, 1, payload["total"])
}

func TestExtractOnce_PublishesExtractionFailed(t *testing.T) {
	c := newTestContainer(t, startNats(t), startModel(t, "I could not do that"))

	_, err := extractOnce(context.Background(), c, "remind me to buy milk")
	require.Error(t, err)

	payload := lastEvent(t, c, events.ExtractionFailed)
	assert.Equal(t, service.SourceTyped, payload["source"])
	assert.NotEmpty(t, payload["error"])
}

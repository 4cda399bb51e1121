package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"uamvh.cloud/escolar/infrastructure/communication"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := &Recorder{}

	Success(ctx, r, "saved")
	Info(ctx, r, "queued")
	Warning(ctx, r, "careful")
	Error(ctx, r, "failed")

	assert.Len(t, r.All(), 4)
	assert.Equal(t, 1, r.Count(LevelInfo))
	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, Notification{Level: LevelError, Message: "failed"}, last)

	r.Reset()
	_, ok = r.Last()
	assert.False(t, ok)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	n := NewLog(zap.New(core))

	Warning(context.Background(), n, "3 actions pending")
	Success(context.Background(), n, "done")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "3 actions pending", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "success", entries[1].ContextMap()["level"])
}

func TestSlackNotifier(t *testing.T) {
	var mu sync.Mutex
	var channels []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		channels = append(channels, r.FormValue("channel"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.0"}`))
	}))
	defer server.Close()

	s := communication.NewSlack("xoxb-test", communication.SlackOption{
		InfoChannelID:  "INFO",
		ErrorChannelID: "ERR",
		APIURL:         server.URL + "/",
	})

	ctx := context.Background()
	quiet := NewSlack(s, nil, false)
	Info(ctx, quiet, "not forwarded")
	Error(ctx, quiet, "sync failed")

	verbose := NewSlack(s, nil, true)
	Success(ctx, verbose, "synced")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ERR", "INFO"}, channels)
}

type sesRecorder struct {
	messages []string
	err      error
}

func (r *sesRecorder) SendRawEmail(_ context.Context, params *ses.SendRawEmailInput, _ ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	r.messages = append(r.messages, string(params.RawMessage.Data))
	return &ses.SendRawEmailOutput{}, r.err
}

func TestEmailNotifier(t *testing.T) {
	client := &sesRecorder{}
	email := communication.NewEmailWithClient(client, communication.EmailOption{
		From: "escolar@uamvh.mx",
		To:   []string{"admin@uamvh.mx"},
	})
	n := NewEmail(email, nil)

	ctx := context.Background()
	Info(ctx, n, "queued")
	Warning(ctx, n, "2 acciones no se pudieron sincronizar")
	Error(ctx, n, "1 acciones descartadas tras varios intentos")

	require.Len(t, client.messages, 1)
	assert.Contains(t, client.messages[0], "Subject: Escolar: 1 acciones descartadas tras varios intentos")

	core, logs := observer.New(zap.WarnLevel)
	client.err = errors.New("throttled")
	NewEmail(email, zap.New(core)).Notify(ctx, Notification{Level: LevelError, Message: "sync failed"})
	assert.Equal(t, 1, logs.FilterMessage("email notification failed").Len())
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Info(context.Background(), Multi{a, nil, b}, "hello")
	assert.Len(t, a.All(), 1)
	assert.Len(t, b.All(), 1)
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(kind Kind) Notification {
	return Notification{
		Kind:          kind,
		AppointmentID: "appt-1",
		ClientName:    "Ana",
		ClientPhone:   "+55 (13) 99999-0000",
		ProcedureName: "Escova",
		Start:         time.Date(2024, time.June, 11, 14, 30, 0, 0, time.UTC),
		Recipient:     "+55 (13) 99999-0000",
	}
}

func TestRender(t *testing.T) {
	confirmation := Render(sample(KindConfirmation))
	assert.Contains(t, confirmation, "*Ana*")
	assert.Contains(t, confirmation, "confirmado")
	assert.Contains(t, confirmation, "11/06 (terça)")
	assert.Contains(t, confirmation, "14:30")

	adjustment := Render(sample(KindAdjustment))
	assert.Contains(t, adjustment, "*Nova data:* 11/06 (terça)")

	request := Render(sample(KindNewRequest))
	assert.Contains(t, request, "- Serviço: Escova")
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifierWritesKeyedMessage(t *testing.T) {
	writer := &fakeWriter{}
	notifier := &KafkaNotifier{writer: writer}

	require.NoError(t, notifier.Notify(context.Background(), sample(KindConfirmation)))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "appt-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "confirmation", string(msg.Headers[0].Value))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "confirmation", payload["kind"])
	assert.Contains(t, payload["text"], "confirmado")

	require.NoError(t, notifier.Close())
	assert.True(t, writer.closed)
}

func TestKafkaNotifierWrapsWriteError(t *testing.T) {
	cause := errors.New("leader not available")
	notifier := &KafkaNotifier{writer: &fakeWriter{err: cause}}

	err := notifier.Notify(context.Background(), sample(KindAdjustment))
	assert.ErrorIs(t, err, cause)
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, " secret ")
	require.NoError(t, notifier.Notify(context.Background(), sample(KindConfirmation)))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "5513999990000", got.To)
	assert.Equal(t, KindConfirmation, got.Kind)
	assert.Equal(t, "appt-1", got.AppointmentID)
}

func TestWebhookNotifierErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	assert.Error(t, NewWebhookNotifier(server.URL, "").Notify(context.Background(), sample(KindConfirmation)))
	assert.Error(t, NewWebhookNotifier("", "").Notify(context.Background(), sample(KindConfirmation)))
}

func TestMultiJoinsErrors(t *testing.T) {
	cause := errors.New("down")
	multi := Multi{NewNoopNotifier(), &KafkaNotifier{writer: &fakeWriter{err: cause}}}
	assert.ErrorIs(t, multi.Notify(context.Background(), sample(KindConfirmation)), cause)
	assert.NoError(t, Multi{NewNoopNotifier()}.Notify(context.Background(), sample(KindConfirmation)))
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitBrokers(""))
}

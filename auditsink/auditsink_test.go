package auditsink

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/boardhub/tokenauth"
)

func sampleEvent(success bool) tokenauth.AuditEvent {
	ev := tokenauth.AuditEvent{
		ID:        "evt-1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EventType: "reissue_reuse_detected",
		Subject:   "user@example.com",
		IP:        "10.0.0.1",
		RequestID: "req-1",
		Success:   success,
	}
	if !success {
		ev.Error = "session_mismatch"
	}
	return ev
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(context.Background(), sampleEvent(false))
	ok := sampleEvent(true)
	ok.EventType = "login_success"
	sink.Emit(context.Background(), ok)

	entries := logs.All()
	require.Len(t, entries, 2)

	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "reissue_reuse_detected", entries[0].Message)
	fields := entries[0].ContextMap()
	require.Equal(t, "user@example.com", fields["subject"])
	require.Equal(t, "session_mismatch", fields["error"])
	require.Equal(t, "req-1", fields["request_id"])

	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.NotContains(t, entries[1].ContextMap(), "error")
}

func startNATS(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server failed to start")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNATSSinkPublishesJSON(t *testing.T) {
	ns := startNATS(t)

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 4)
	_, err = sub.ChanSubscribe("audit.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	sink, err := Connect(ns.ClientURL(), "audit.", zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	sink.Emit(context.Background(), sampleEvent(false))

	select {
	case msg := <-msgs:
		require.Equal(t, "audit.reissue_reuse_detected", msg.Subject)
		var got tokenauth.AuditEvent
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		require.Equal(t, "evt-1", got.ID)
		require.Equal(t, "user@example.com", got.Subject)
		require.False(t, got.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("audit event not published")
	}
}

func TestNATSSinkClosedConnectionLogs(t *testing.T) {
	ns := startNATS(t)

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	sink, err := NewNATSSink(conn, "", zap.New(core))
	require.NoError(t, err)
	require.Equal(t, "tokenauth.audit.login_success", sink.Subject("login_success"))

	conn.Close()
	sink.Emit(context.Background(), sampleEvent(true))

	require.Equal(t, 1, logs.FilterMessage("publish audit event").Len())
}

func TestNewNATSSinkRequiresConnection(t *testing.T) {
	_, err := NewNATSSink(nil, "", nil)
	require.Error(t, err)
}

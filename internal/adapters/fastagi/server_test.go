package fastagi

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/pkg/ports"
)

type capturedEvent struct {
	uid  string
	flow string
}

type captureHandler struct {
	events chan capturedEvent
}

func (h *captureHandler) HandleEvent(ctx context.Context, call ports.CallControl, uid, flow string) error {
	h.events <- capturedEvent{uid: uid, flow: flow}
	return nil
}

func TestReadEnv(t *testing.T) {
	header := strings.Join([]string{
		"agi_network: yes",
		"agi_network_script: support/",
		"agi_uniqueid: 1724800000.42",
		"agi_language: en",
		"not_agi_key: ignored",
		"",
		"trailing data",
	}, "\n") + "\n"

	env, err := readEnv(bufio.NewReader(strings.NewReader(header)))
	require.NoError(t, err)

	assert.Equal(t, "1724800000.42", env["agi_uniqueid"])
	assert.Equal(t, "support/", env["agi_network_script"])
	assert.NotContains(t, env, "not_agi_key")
}

func TestFlowName(t *testing.T) {
	assert.Equal(t, "support", flowName(map[string]string{"agi_network_script": "/support/"}, "default"))
	assert.Equal(t, "default", flowName(map[string]string{}, "default"))
	assert.Equal(t, "default", flowName(map[string]string{"agi_network_script": "/"}, "default"))
}

func TestServerDispatchesEvent(t *testing.T) {
	handler := &captureHandler{events: make(chan capturedEvent, 1)}
	srv := NewServer(handler, WithDefaultFlow("main"))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("agi_network_script: billing\nagi_uniqueid: uid-1\n\n"))
	require.NoError(t, err)

	select {
	case ev := <-handler.events:
		assert.Equal(t, "uid-1", ev.uid)
		assert.Equal(t, "billing", ev.flow)
	case <-time.After(2 * time.Second):
		t.Fatal("no event dispatched")
	}
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}

func TestServerRejectsMissingUID(t *testing.T) {
	handler := &captureHandler{events: make(chan capturedEvent, 1)}
	srv := NewServer(handler)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("agi_network_script: billing\n\n"))
	require.NoError(t, err)

	// The server drops the connection without dispatching.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, readErr := conn.Read(buf)
	assert.Error(t, readErr)
	assert.Empty(t, handler.events)
	_ = conn.Close()
}

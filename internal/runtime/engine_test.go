package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/internal/adapters/memory"
	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// fakeCall is a scripted CallControl: digit results are served in order and
// every command is recorded.
type fakeCall struct {
	digits   []ports.DigitResult
	vars     map[string]string
	db       map[string]string
	commands []string
}

func newFakeCall() *fakeCall {
	return &fakeCall{vars: map[string]string{}, db: map[string]string{}}
}

func (f *fakeCall) record(format string, args ...any) {
	f.commands = append(f.commands, fmt.Sprintf(format, args...))
}

func (f *fakeCall) Answer(ctx context.Context) error { f.record("answer"); return nil }

func (f *fakeCall) Hangup(ctx context.Context, channel string) error {
	f.record("hangup %s", channel)
	return nil
}

func (f *fakeCall) StreamFile(ctx context.Context, file, escape string, offset int) error {
	f.record("stream %s", file)
	return nil
}

func (f *fakeCall) RecordFile(ctx context.Context, p ports.RecordParams) error {
	f.record("record %s.%s", p.File, p.Format)
	return nil
}

func (f *fakeCall) CollectDigits(ctx context.Context, prompt string, timeoutMS, maxDigits int) (ports.DigitResult, error) {
	f.record("collect %s timeout=%d max=%d", prompt, timeoutMS, maxDigits)
	if len(f.digits) == 0 {
		return ports.DigitResult{TimedOut: true}, nil
	}
	res := f.digits[0]
	f.digits = f.digits[1:]
	return res, nil
}

func (f *fakeCall) SetCallerID(ctx context.Context, number string) error {
	f.record("callerid %s", number)
	return nil
}

func (f *fakeCall) SetMusic(ctx context.Context, on bool, class string) error {
	f.record("music %v %s", on, class)
	return nil
}

func (f *fakeCall) ExecApp(ctx context.Context, app, options string) error {
	f.record("exec %s %s", app, options)
	return nil
}

func (f *fakeCall) Verbose(ctx context.Context, message string, level int) error {
	f.record("verbose %s", message)
	return nil
}

func (f *fakeCall) SetVariable(ctx context.Context, name, value string) error {
	f.record("setvar %s=%s", name, value)
	f.vars[name] = value
	return nil
}

func (f *fakeCall) GetVariable(ctx context.Context, name string) (string, error) {
	f.record("getvar %s", name)
	return f.vars[name], nil
}

func (f *fakeCall) GetFullVariable(ctx context.Context, expr string) (string, error) {
	f.record("getfullvar %s", expr)
	return f.vars[expr], nil
}

func (f *fakeCall) DBGet(ctx context.Context, family, key string) (string, error) {
	f.record("dbget %s/%s", family, key)
	return f.db[family+"/"+key], nil
}

func (f *fakeCall) DBPut(ctx context.Context, family, key, value string) error {
	f.record("dbput %s/%s=%s", family, key, value)
	f.db[family+"/"+key] = value
	return nil
}

func (f *fakeCall) DBDel(ctx context.Context, family, key string) error {
	f.record("dbdel %s/%s", family, key)
	return nil
}

func (f *fakeCall) GotoOnExit(ctx context.Context, dialContext, extension, priority string) error {
	f.record("gotoonexit %s,%s,%s", dialContext, extension, priority)
	return nil
}

// recordingStore snapshots the channel at every update so tests can assert
// the path it took through the flow.
type recordingStore struct {
	*memory.Store
	snapshots []domain.Channel
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: memory.New()}
}

func (r *recordingStore) Update(ctx context.Context, ch *domain.Channel) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	var snap domain.Channel
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	r.snapshots = append(r.snapshots, snap)
	return r.Store.Update(ctx, ch)
}

func (r *recordingStore) visited() []string {
	var out []string
	for _, snap := range r.snapshots {
		out = append(out, snap.NodeID)
	}
	return out
}

func menuFlow() domain.FlowDocument {
	return domain.FlowDocument{
		FlowVariables: map[string]any{"greeting": "welcome"},
		Nodes: []map[string]any{
			{"id": "start", "type": "playback", "file": "{{ greeting }}", "o_connection": "ask"},
			{
				"id": "ask", "type": "get_data",
				"file": "menu", "max_digits": 1, "timeout": 3000,
				"variable": "opt", "validation": "{{ opt }}",
				"cases": []map[string]any{
					{"id": "1", "o_connection": "m1"},
					{"id": "default", "o_connection": "m2"},
				},
			},
			{"id": "m1", "type": "playback", "file": "sales"},
			{"id": "m2", "type": "playback", "file": "sorry"},
		},
	}
}

func newTestEngine(t *testing.T, store ports.ChannelStore, docs map[string]domain.FlowDocument, opts ...Option) *Engine {
	t.Helper()
	source := memory.NewFlowSource()
	for name, doc := range docs {
		source.AddFlow(name, doc)
	}
	return New(store, source, opts...)
}

func TestHandleEventMenuSelection(t *testing.T) {
	store := newRecordingStore()
	engine := newTestEngine(t, store, map[string]domain.FlowDocument{"main": menuFlow()})

	call := newFakeCall()
	call.digits = []ports.DigitResult{{Value: "1"}}

	require.NoError(t, engine.HandleEvent(context.Background(), call, "uid-1", "main"))

	assert.Contains(t, call.commands, "stream welcome")
	assert.Contains(t, call.commands, "collect menu timeout=3000 max=1")
	assert.Contains(t, call.commands, "stream sales")
	assert.NotContains(t, call.commands, "stream sorry")

	visited := store.visited()
	assert.Contains(t, visited, "m1")
	for i, snap := range store.snapshots {
		if snap.NodeID == "m1" {
			assert.False(t, snap.Ended(), "channel passes m1 still in flow")
		}
		_ = i
	}

	// The record survives the flow end, reset to start.
	final, err := store.GetByUID(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StartNodeID, final.NodeID)
	assert.False(t, final.Ended())
	assert.Empty(t, final.Variables)
}

func TestHandleEventMenuTimeout(t *testing.T) {
	store := newRecordingStore()
	engine := newTestEngine(t, store, map[string]domain.FlowDocument{"main": menuFlow()})

	call := newFakeCall() // no digits scripted: collection times out

	require.NoError(t, engine.HandleEvent(context.Background(), call, "uid-2", "main"))

	assert.Contains(t, call.commands, "stream sorry")
	assert.NotContains(t, call.commands, "stream sales")

	// The timeout sentinel was bound to the variable before case selection.
	var sawTimeout bool
	for _, snap := range store.snapshots {
		if v, ok := snap.Variable("opt"); ok && v == "timeout" {
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout, "captured value should be the timeout sentinel")
}

func TestHandleEventSubroutineRoundTrip(t *testing.T) {
	doc := domain.FlowDocument{
		Nodes: []map[string]any{
			{"id": "start", "type": "subroutine", "go_sub": "sub_hello", "o_connection": "after"},
			{"id": "sub_hello", "type": "playback", "file": "hello", "o_connection": "start"},
			{"id": "after", "type": "playback", "file": "done"},
		},
	}
	store := newRecordingStore()
	engine := newTestEngine(t, store, map[string]domain.FlowDocument{"main": doc})

	call := newFakeCall()
	require.NoError(t, engine.HandleEvent(context.Background(), call, "uid-3", "main"))

	assert.Equal(t, []string{"stream hello", "stream done"}, call.commands)

	// Push-then-pop nets to zero residual stack growth.
	for _, snap := range store.snapshots {
		if snap.NodeID == "after" || snap.Ended() {
			assert.True(t, snap.CallStackOrNew().Empty())
		}
	}
	visited := store.visited()
	assert.Equal(t, []string{"sub_hello", "start", "after", "", domain.StartNodeID}, visited)
}

func TestHandleEventDatabaseDel(t *testing.T) {
	doc := domain.FlowDocument{
		Nodes: []map[string]any{
			{"id": "start", "type": "database_del", "entries": []any{"/Exten/Sequence/196"}},
		},
	}
	store := memory.New()
	engine := newTestEngine(t, store, map[string]domain.FlowDocument{"main": doc})

	call := newFakeCall()
	require.NoError(t, engine.HandleEvent(context.Background(), call, "uid-4", "main"))

	var dels []string
	for _, cmd := range call.commands {
		if strings.HasPrefix(cmd, "dbdel") {
			dels = append(dels, cmd)
		}
	}
	assert.Equal(t, []string{"dbdel Exten/Sequence/196"}, dels)
}

func TestHandleEventMaxSteps(t *testing.T) {
	doc := domain.FlowDocument{
		Nodes: []map[string]any{
			{"id": "start", "type": "no_op", "o_connection": "pong"},
			{"id": "pong", "type": "no_op", "o_connection": "start"},
		},
	}
	store := memory.New()
	engine := newTestEngine(t, store, map[string]domain.FlowDocument{"main": doc}, WithMaxSteps(8))

	err := engine.HandleEvent(context.Background(), newFakeCall(), "uid-5", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps")
}

func TestHandleEventUnknownNodeResets(t *testing.T) {
	doc := domain.FlowDocument{
		Nodes: []map[string]any{
			{"id": "start", "type": "no_op", "o_connection": "ghost"},
		},
	}
	store := memory.New()
	engine := newTestEngine(t, store, map[string]domain.FlowDocument{"main": doc})

	// The event advances to the dangling id, then the drive loop finds no
	// node there and parks the channel back at the entry.
	require.NoError(t, engine.HandleEvent(context.Background(), newFakeCall(), "uid-6", "main"))

	ch, err := store.GetByUID(context.Background(), "uid-6")
	require.NoError(t, err)
	assert.Equal(t, domain.StartNodeID, ch.NodeID)
}

func TestHandleEventUnknownFlow(t *testing.T) {
	engine := newTestEngine(t, memory.New(), map[string]domain.FlowDocument{})
	err := engine.HandleEvent(context.Background(), newFakeCall(), "uid-7", "nope")
	require.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestHandleEventHangupForcesEnd(t *testing.T) {
	doc := domain.FlowDocument{
		Nodes: []map[string]any{
			{"id": "start", "type": "answer", "o_connection": "bye"},
			{"id": "bye", "type": "hangup", "o_connection": "never"},
			{"id": "never", "type": "playback", "file": "unreachable"},
		},
	}
	store := newRecordingStore()
	engine := newTestEngine(t, store, map[string]domain.FlowDocument{"main": doc})

	call := newFakeCall()
	require.NoError(t, engine.HandleEvent(context.Background(), call, "uid-8", "main"))

	assert.NotContains(t, call.commands, "stream unreachable")
	var ended bool
	for _, snap := range store.snapshots {
		if snap.Ended() {
			ended = true
		}
	}
	assert.True(t, ended)
}

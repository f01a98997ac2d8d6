package domain

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// NodeKind discriminates the closed set of node types a flow may contain.
type NodeKind string

const (
	KindAnswer          NodeKind = "answer"
	KindHangup          NodeKind = "hangup"
	KindPlayback        NodeKind = "playback"
	KindRecord          NodeKind = "record"
	KindGetData         NodeKind = "get_data"
	KindSwitch          NodeKind = "switch"
	KindHTTPRequest     NodeKind = "http_request"
	KindSubroutine      NodeKind = "subroutine"
	KindSetVariable     NodeKind = "set_variable"
	KindSetVars         NodeKind = "set_vars"
	KindGetVariable     NodeKind = "get_variable"
	KindGetFullVariable NodeKind = "get_full_variable"
	KindDatabaseGet     NodeKind = "database_get"
	KindDatabasePut     NodeKind = "database_put"
	KindDatabaseDel     NodeKind = "database_del"
	KindVerbose         NodeKind = "verbose"
	KindSetCallerID     NodeKind = "set_callerid"
	KindSetMusic        NodeKind = "set_music"
	KindExecApp         NodeKind = "exec_app"
	KindGotoOnExit      NodeKind = "goto_on_exit"
	KindEmail           NodeKind = "email"
	KindNoOp            NodeKind = "no_op"
)

// EdgeFinish is the sentinel edge value meaning "no configured edge": fall
// back to the call stack, or end the flow. An empty string means the same.
const EdgeFinish = "finish"

// Node is one typed step of a flow. Scalar fields that accept template
// expressions are kept as strings and rendered at execution time; the Spec
// field holds the kind-specific payload (one of the *Spec structs below).
//
// Nodes are immutable once loaded.
type Node struct {
	ID   string
	Kind NodeKind
	// Next is the default outgoing edge (the original flow format calls it
	// o_connection). Empty or "finish" means "return via stack or end".
	Next string
	Spec any
}

// Case is one outgoing branch of a switch-style node. Exactly one of ID
// (matched against the rendered validation value, or the sentinels "default"
// / "attempt_exceeded" / "except") or Case (a boolean expression evaluated
// per attempt) selects it.
type Case struct {
	ID          string         `mapstructure:"id"`
	Case        string         `mapstructure:"case"`
	OConnection string         `mapstructure:"o_connection"`
	Variables   map[string]any `mapstructure:"variables"`
}

// SwitchSpec drives edge selection from a rendered value or per-case boolean
// expressions, with a bounded retry fallback.
type SwitchSpec struct {
	Validation         string `mapstructure:"validation"`
	ValidationAttempts int    `mapstructure:"validation_attempts"`
	Cases              []Case `mapstructure:"cases"`
}

// GetDataSpec collects caller input: DTMF digits by default, or speech when
// an ASR middleware is attached. A TTS middleware may synthesize the prompt.
type GetDataSpec struct {
	SwitchSpec    `mapstructure:",squash"`
	File          string   `mapstructure:"file"`
	Text          string   `mapstructure:"text"`
	ProgressSound string   `mapstructure:"progress_sound"`
	Middleware    []string `mapstructure:"middleware"`
	Timeout       string   `mapstructure:"timeout"`
	MaxDigits     string   `mapstructure:"max_digits"`
	Variable      string   `mapstructure:"variable"`
}

// HTTPRequestSpec issues one outbound HTTP call; the response status selects
// the case, and response fields/cookies are extracted into variables.
type HTTPRequestSpec struct {
	SwitchSpec  `mapstructure:",squash"`
	Method      string            `mapstructure:"method"`
	URL         string            `mapstructure:"url"`
	Headers     map[string]any    `mapstructure:"headers"`
	QueryParams map[string]any    `mapstructure:"query_params"`
	BasicAuth   map[string]any    `mapstructure:"basic_auth"`
	Data        map[string]any    `mapstructure:"data"`
	JSON        map[string]any    `mapstructure:"json"`
	Cookies     []string          `mapstructure:"cookies"`
	Variables   map[string]string `mapstructure:"variables"`
	Middleware  string            `mapstructure:"middleware"`
}

// PlaybackSpec streams an audio file, optionally synthesized by TTS first.
type PlaybackSpec struct {
	File         string   `mapstructure:"file"`
	Text         string   `mapstructure:"text"`
	EscapeDigits string   `mapstructure:"escape_digits"`
	SampleOffset string   `mapstructure:"sample_offset"`
	Middleware   []string `mapstructure:"middleware"`
}

// RecordSpec captures caller audio to a file.
type RecordSpec struct {
	File         string `mapstructure:"file"`
	Format       string `mapstructure:"format"`
	EscapeDigits string `mapstructure:"escape_digits"`
	Timeout      string `mapstructure:"timeout"`
	Silence      string `mapstructure:"silence"`
	Offset       string `mapstructure:"offset"`
	Beep         string `mapstructure:"beep"`
}

// SubroutineSpec transfers control to a sub-flow entry node, returning to
// this node when the sub-flow falls through.
type SubroutineSpec struct {
	GoSub string `mapstructure:"go_sub"`
}

// SetVariableSpec sets variables on the call leg itself (not the channel bag).
type SetVariableSpec struct {
	Variables map[string]any `mapstructure:"variables"`
}

// SetVarsSpec merges a rendered map into channel variables and deletes the
// listed keys. Both halves are optional.
type SetVarsSpec struct {
	Variables SetVarsPayload `mapstructure:"variables"`
}

// SetVarsPayload is the variables block of a set_vars node.
type SetVarsPayload struct {
	Set   map[string]any `mapstructure:"set"`
	Unset []string       `mapstructure:"unset"`
}

// GetVariableSpec reads one call-leg variable into a channel variable.
type GetVariableSpec struct {
	Name     string `mapstructure:"name"`
	Variable string `mapstructure:"variable"`
}

// GetFullVariableSpec evaluates call-leg expressions into channel variables.
type GetFullVariableSpec struct {
	Variables map[string]string `mapstructure:"variables"`
}

// DatabaseGetSpec reads one (family, key) entry of the call platform's
// key-value store into a channel variable.
type DatabaseGetSpec struct {
	Family   string `mapstructure:"family"`
	Key      string `mapstructure:"key"`
	Variable string `mapstructure:"variable"`
}

// DatabasePutSpec writes "/family/key" entries to the platform store.
type DatabasePutSpec struct {
	Entries map[string]any `mapstructure:"entries"`
}

// DatabaseDelSpec deletes "/family/key" entries from the platform store.
type DatabaseDelSpec struct {
	Entries []string `mapstructure:"entries"`
}

// VerboseSpec emits a message on the call platform console.
type VerboseSpec struct {
	Message string `mapstructure:"message"`
	Level   string `mapstructure:"level"`
}

// SetCallerIDSpec overrides the caller id of the leg.
type SetCallerIDSpec struct {
	Number string `mapstructure:"number"`
}

// SetMusicSpec toggles hold music.
type SetMusicSpec struct {
	Toggle     string `mapstructure:"toggle"`
	MusicClass string `mapstructure:"music_class"`
}

// ExecAppSpec runs an arbitrary dialplan application.
type ExecAppSpec struct {
	Application string `mapstructure:"application"`
	Options     string `mapstructure:"options"`
}

// GotoOnExitSpec sets the dialplan position taken when the flow exits.
type GotoOnExitSpec struct {
	Context   string `mapstructure:"context"`
	Extension string `mapstructure:"extension"`
	Priority  string `mapstructure:"priority"`
}

// EmailSpec dispatches a message through a configured email server.
type EmailSpec struct {
	ServerID    string   `mapstructure:"server_id"`
	Subject     string   `mapstructure:"subject"`
	Text        string   `mapstructure:"text"`
	Format      string   `mapstructure:"format"`
	Recipients  []string `mapstructure:"recipients"`
	Attachments []string `mapstructure:"attachments"`
}

// HangupSpec terminates the call, optionally naming another channel.
type HangupSpec struct {
	Chan string `mapstructure:"chan"`
}

// AnswerSpec has no type-specific fields.
type AnswerSpec struct{}

// NoOpSpec has no type-specific fields.
type NoOpSpec struct{}

// specFor maps a kind to a freshly allocated payload for decoding.
func specFor(kind NodeKind) (any, bool) {
	switch kind {
	case KindAnswer:
		return &AnswerSpec{}, true
	case KindHangup:
		return &HangupSpec{}, true
	case KindPlayback:
		return &PlaybackSpec{}, true
	case KindRecord:
		return &RecordSpec{}, true
	case KindGetData:
		return &GetDataSpec{}, true
	case KindSwitch:
		return &SwitchSpec{}, true
	case KindHTTPRequest:
		return &HTTPRequestSpec{}, true
	case KindSubroutine:
		return &SubroutineSpec{}, true
	case KindSetVariable:
		return &SetVariableSpec{}, true
	case KindSetVars:
		return &SetVarsSpec{}, true
	case KindGetVariable:
		return &GetVariableSpec{}, true
	case KindGetFullVariable:
		return &GetFullVariableSpec{}, true
	case KindDatabaseGet:
		return &DatabaseGetSpec{}, true
	case KindDatabasePut:
		return &DatabasePutSpec{}, true
	case KindDatabaseDel:
		return &DatabaseDelSpec{}, true
	case KindVerbose:
		return &VerboseSpec{}, true
	case KindSetCallerID:
		return &SetCallerIDSpec{}, true
	case KindSetMusic:
		return &SetMusicSpec{}, true
	case KindExecApp:
		return &ExecAppSpec{}, true
	case KindGotoOnExit:
		return &GotoOnExitSpec{}, true
	case KindEmail:
		return &EmailSpec{}, true
	case KindNoOp:
		return &NoOpSpec{}, true
	}
	return nil, false
}

// stringToSliceHook lets flow authors write `middleware: m1` where a list is
// expected.
func stringToSliceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.String {
		return []string{data.(string)}, nil
	}
	return data, nil
}

// DecodeNode builds a typed Node from the raw map form of a flow file entry.
// An unknown type tag returns an error so loaders can drop the node with a
// warning instead of failing the whole flow.
func DecodeNode(raw map[string]any) (*Node, error) {
	id, _ := raw["id"].(string)
	typ, _ := raw["type"].(string)
	if id == "" {
		return nil, fmt.Errorf("node without id")
	}

	kind := NodeKind(typ)
	spec, ok := specFor(kind)
	if !ok {
		return nil, fmt.Errorf("node %q: unknown type %q", id, typ)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           spec,
		WeaklyTypedInput: true,
		DecodeHook:       stringToSliceHook,
	})
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}

	next := ""
	if v, ok := raw["o_connection"]; ok && v != nil {
		next = fmt.Sprint(v)
	}
	return &Node{ID: id, Kind: kind, Next: next, Spec: spec}, nil
}

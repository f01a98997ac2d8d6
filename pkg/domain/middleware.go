package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// MiddlewareKind discriminates the reusable outbound adapters a node may
// attach: token refresh for protected HTTP calls, text-to-speech synthesis,
// and speech recognition.
type MiddlewareKind string

const (
	MiddlewareHTTPAuth MiddlewareKind = "http_auth"
	MiddlewareTTS      MiddlewareKind = "tts"
	MiddlewareASR      MiddlewareKind = "asr"
)

// DefaultAuthAttempts bounds http-auth retries when a definition omits the
// attempts field.
const DefaultAuthAttempts = 2

// Middleware is one outbound-HTTP adapter definition from the flow-utilities
// bundle. All request fields accept template expressions and are rendered
// against the channel scope at execution time.
type Middleware struct {
	ID          string            `mapstructure:"id"`
	Kind        MiddlewareKind    `mapstructure:"type"`
	Method      string            `mapstructure:"method"`
	URL         string            `mapstructure:"url"`
	Headers     map[string]any    `mapstructure:"headers"`
	QueryParams map[string]any    `mapstructure:"query_params"`
	BasicAuth   map[string]any    `mapstructure:"basic_auth"`
	Data        map[string]any    `mapstructure:"data"`
	JSON        map[string]any    `mapstructure:"json"`
	Cookies     []string          `mapstructure:"cookies"`
	Variables   map[string]string `mapstructure:"variables"`

	// http_auth only: the token endpoint appended to URL and the retry bound.
	TokenPath string `mapstructure:"token_path"`
	Attempts  int    `mapstructure:"attempts"`

	// tts only: where the synthesized audio lands.
	SoundPath string `mapstructure:"sound_path"`

	// asr only: recording parameters for the captured utterance.
	RecordFormat string `mapstructure:"record_format"`
	EscapeDigits string `mapstructure:"escape_digits"`
	Timeout      string `mapstructure:"timeout"`
	Silence      string `mapstructure:"silence"`
}

// AttemptBound returns the configured retry bound, defaulted when unset.
func (m *Middleware) AttemptBound() int {
	if m.Attempts > 0 {
		return m.Attempts
	}
	return DefaultAuthAttempts
}

// EmailServer is one SMTP endpoint definition from the flow-utilities bundle,
// referenced by email nodes through its id.
type EmailServer struct {
	ID       string `mapstructure:"server_id" yaml:"server_id"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	StartTLS bool   `mapstructure:"start_tls" yaml:"start_tls"`
}

// FlowUtilities is the shared bundle of middleware and email server
// definitions, loaded once and cached by id for the process lifetime.
type FlowUtilities struct {
	middlewares  map[string]*Middleware
	emailServers map[string]EmailServer
}

// Middleware returns a definition by id, or nil.
func (u *FlowUtilities) Middleware(id string) *Middleware {
	if u == nil {
		return nil
	}
	return u.middlewares[id]
}

// EmailServer returns a server definition by id.
func (u *FlowUtilities) EmailServer(id string) (EmailServer, bool) {
	if u == nil {
		return EmailServer{}, false
	}
	s, ok := u.emailServers[id]
	return s, ok
}

// EmailServers lists every configured server definition.
func (u *FlowUtilities) EmailServers() []EmailServer {
	if u == nil {
		return nil
	}
	out := make([]EmailServer, 0, len(u.emailServers))
	for _, s := range u.emailServers {
		out = append(out, s)
	}
	return out
}

// UtilitiesDocument is the raw on-disk form of the flow-utilities bundle.
type UtilitiesDocument struct {
	Middlewares  []map[string]any `yaml:"middlewares" json:"middlewares"`
	EmailServers []EmailServer    `yaml:"email_servers" json:"email_servers"`
}

// DecodeUtilities builds the typed bundle, dropping definitions with an
// unknown kind. The error list carries one entry per dropped definition so
// callers can warn without failing the load.
func DecodeUtilities(doc UtilitiesDocument) (*FlowUtilities, []error) {
	u := &FlowUtilities{
		middlewares:  map[string]*Middleware{},
		emailServers: map[string]EmailServer{},
	}
	var errs []error

	for _, raw := range doc.Middlewares {
		var mw Middleware
		if err := mapstructure.WeakDecode(raw, &mw); err != nil {
			errs = append(errs, fmt.Errorf("middleware %v: %w", raw["id"], err))
			continue
		}
		switch mw.Kind {
		case MiddlewareHTTPAuth, MiddlewareTTS, MiddlewareASR:
		default:
			errs = append(errs, fmt.Errorf("middleware %q: unknown type %q", mw.ID, mw.Kind))
			continue
		}
		u.middlewares[mw.ID] = &mw
	}

	for _, s := range doc.EmailServers {
		u.emailServers[s.ID] = s
	}
	return u, errs
}

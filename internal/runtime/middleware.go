package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/voxflow/voxflow/pkg/domain"
	"github.com/voxflow/voxflow/pkg/ports"
)

// Scope keys injected for middleware request templates.
const (
	scopeText       = "text"
	scopeRecordFile = "record_file"
)

// httpFields is the rendered shape of one outbound request, shared by the
// http_request node and every middleware kind.
type httpFields struct {
	Method      string
	URL         string
	Headers     map[string]any
	QueryParams map[string]any
	BasicAuth   map[string]any
	Form        map[string]any
	JSON        map[string]any
}

// doRequest renders every field against scope and issues the call through
// the engine's shared client.
func (s *session) doRequest(ctx context.Context, f httpFields, scope map[string]any) (*resty.Response, error) {
	method := strings.ToUpper(strings.TrimSpace(s.renderWith(f.Method, scope)))
	if method == "" {
		method = "GET"
	}
	url := s.renderWith(f.URL, scope)

	req := s.engine.http.R().SetContext(ctx)
	for k, v := range f.Headers {
		req.SetHeader(k, s.renderAnyString(v, scope))
	}
	for k, v := range f.QueryParams {
		req.SetQueryParam(k, s.renderAnyString(v, scope))
	}
	if len(f.BasicAuth) > 0 {
		user := s.renderAnyString(f.BasicAuth["login"], scope)
		pass := s.renderAnyString(f.BasicAuth["password"], scope)
		req.SetBasicAuth(user, pass)
	}
	if len(f.Form) > 0 {
		form := make(map[string]string, len(f.Form))
		for k, v := range f.Form {
			form[k] = s.renderAnyString(v, scope)
		}
		req.SetFormData(form)
	}
	if len(f.JSON) > 0 {
		body, err := RenderValue(f.JSON, scope)
		if err != nil {
			return nil, err
		}
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if s.engine.stats != nil && resp != nil {
		status := "error"
		if err == nil {
			status = fmt.Sprint(resp.StatusCode())
		}
		s.engine.stats.OutboundHTTP.WithLabelValues(status).Observe(resp.Time().Seconds())
	}
	return resp, err
}

func (s *session) renderWith(template string, scope map[string]any) string {
	out, err := Render(template, scope)
	if err != nil {
		s.log.Warn("template render failed", "template", template, "error", err)
		return ""
	}
	return stringify(out)
}

func (s *session) renderAnyString(v any, scope map[string]any) string {
	out, err := RenderValue(v, scope)
	if err != nil {
		s.log.Warn("template render failed", "error", err)
		return ""
	}
	return stringify(out)
}

// extractResponse binds response fields into channel variables: each entry of
// variables maps a channel variable to a path into the JSON body (an empty
// path, or any path against a non-JSON body, takes the whole body), and each
// listed cookie is stored under its own name.
func (s *session) extractResponse(resp *resty.Response, variables map[string]string, cookies []string) {
	body := resp.Body()
	isJSON := gjson.ValidBytes(body)

	for name, path := range variables {
		path = strings.TrimSpace(path)
		switch {
		case path == "" || !isJSON:
			s.channel.SetVariable(name, string(body))
		default:
			r := gjson.GetBytes(body, path)
			if !r.Exists() {
				s.log.Warn("response field missing", "variable", name, "path", path)
				continue
			}
			s.channel.SetVariable(name, r.Value())
		}
	}

	for _, name := range cookies {
		for _, c := range resp.Cookies() {
			if c.Name == name {
				s.channel.SetVariable(name, c.Value)
				break
			}
		}
	}
}

// runTTS synthesizes text through a TTS middleware and returns the audio
// path for the calling node to stream. Failure extracts nothing and returns
// an empty path; the caller falls back to its own file field.
func (s *session) runTTS(ctx context.Context, mw *domain.Middleware, text string) string {
	scope := s.scope()
	scope[scopeText] = text

	resp, err := s.doRequest(ctx, middlewareFields(mw), scope)
	if err != nil {
		s.log.Warn("tts request failed", "middleware", mw.ID, "error", err)
		return ""
	}
	if !resp.IsSuccess() {
		s.log.Warn("tts request rejected", "middleware", mw.ID, "status", resp.StatusCode())
		return ""
	}
	s.extractResponse(resp, mw.Variables, mw.Cookies)

	// SoundPath may reference variables the extraction just set.
	return s.renderWith(mw.SoundPath, s.scope())
}

// runASR records the caller and runs speech recognition, returning the value
// to bind as the captured input. A failed recognition leaves nothing
// extracted and captures the timeout sentinel.
func (s *session) runASR(ctx context.Context, mw *domain.Middleware, prompt, variable string) any {
	format := mw.RecordFormat
	if format == "" {
		format = "wav"
	}
	file := fmt.Sprintf("/tmp/voxflow-asr-%s", uuid.NewString())

	if prompt != "" {
		if err := s.call.StreamFile(ctx, prompt, mw.EscapeDigits, 0); err != nil {
			s.log.Warn("asr prompt failed", "middleware", mw.ID, "error", err)
		}
	}

	p := ports.RecordParams{
		File:         file,
		Format:       format,
		EscapeDigits: mw.EscapeDigits,
		TimeoutMS:    asInt(coerce(mw.Timeout), -1),
		SilenceSec:   asInt(coerce(mw.Silence), 0),
		Beep:         true,
	}
	if err := s.call.RecordFile(ctx, p); err != nil {
		s.log.Warn("asr recording failed", "middleware", mw.ID, "error", err)
		return timeoutValue
	}

	scope := s.scope()
	scope[scopeRecordFile] = file + "." + format

	resp, err := s.doRequest(ctx, middlewareFields(mw), scope)
	if err != nil {
		s.log.Warn("asr request failed", "middleware", mw.ID, "error", err)
		return timeoutValue
	}
	if !resp.IsSuccess() {
		s.log.Warn("asr request rejected", "middleware", mw.ID, "status", resp.StatusCode())
		return timeoutValue
	}
	s.extractResponse(resp, mw.Variables, mw.Cookies)

	if v, ok := s.channel.Variable(variable); ok {
		return v
	}
	return timeoutValue
}

// runAuthRefresh exchanges credentials for a fresh token after a 401. The
// token lands in channel variables via the middleware's extraction map, so
// the retried request renders with it.
func (s *session) runAuthRefresh(ctx context.Context, mw *domain.Middleware) {
	f := middlewareFields(mw)
	f.URL = strings.TrimSuffix(mw.URL, "/") + "/" + strings.TrimPrefix(mw.TokenPath, "/")
	if mw.Method == "" {
		f.Method = "POST"
	}

	resp, err := s.doRequest(ctx, f, s.scope())
	if err != nil {
		s.log.Warn("auth refresh failed", "middleware", mw.ID, "error", err)
		return
	}
	if !resp.IsSuccess() {
		s.log.Warn("auth refresh rejected", "middleware", mw.ID, "status", resp.StatusCode())
		return
	}
	s.extractResponse(resp, mw.Variables, mw.Cookies)
}

func middlewareFields(mw *domain.Middleware) httpFields {
	return httpFields{
		Method:      mw.Method,
		URL:         mw.URL,
		Headers:     mw.Headers,
		QueryParams: mw.QueryParams,
		BasicAuth:   mw.BasicAuth,
		Form:        mw.Data,
		JSON:        mw.JSON,
	}
}

package runtime

import (
	"context"
	"strconv"
	"strings"

	"github.com/voxflow/voxflow/pkg/domain"
)

// Transport failures and timeouts route through the node's "500" case when
// one is defined.
const caseTransportError = "500"

// execHTTPRequest issues one outbound call and selects the edge from the
// response status. An attached http_auth middleware turns 401 into a
// bounded refresh-and-retry loop.
func execHTTPRequest(ctx context.Context, s *session) (string, error) {
	spec := s.node.Spec.(*domain.HTTPRequestSpec)

	resp, err := s.doRequest(ctx, httpFields{
		Method:      spec.Method,
		URL:         spec.URL,
		Headers:     spec.Headers,
		QueryParams: spec.QueryParams,
		BasicAuth:   spec.BasicAuth,
		Form:        spec.Data,
		JSON:        spec.JSON,
	}, s.scope())
	if err != nil {
		s.log.Warn("outbound request failed", "error", err)
		if c := caseByID(spec.Cases, caseTransportError); c != nil {
			return s.takeCase(c)
		}
		return "", err
	}

	uid, nodeID := s.channel.UID, s.node.ID
	status := resp.StatusCode()

	if status == 401 {
		if mw := s.authMiddleware(ctx, spec.Middleware); mw != nil {
			if s.engine.authAttempts.increment(uid, nodeID) >= mw.AttemptBound() {
				s.engine.authAttempts.clear(uid, nodeID)
				if c := caseByID(spec.Cases, caseDefault); c != nil {
					return s.takeCase(c)
				}
				return s.edge(""), nil
			}
			s.runAuthRefresh(ctx, mw)
			// Re-enter this node so the protected call retries with the
			// refreshed token.
			return nodeID, nil
		}
	}
	if resp.IsSuccess() {
		s.engine.authAttempts.clear(uid, nodeID)
	}

	s.extractResponse(resp, spec.Variables, spec.Cookies)

	if strings.TrimSpace(spec.Validation) != "" {
		return s.decideSwitch(&spec.SwitchSpec)
	}
	if c := caseByID(spec.Cases, strconv.Itoa(status)); c != nil {
		return s.takeCase(c)
	}
	if c := caseByID(spec.Cases, caseDefault); c != nil {
		return s.takeCase(c)
	}
	return s.edge(s.renderString(s.node.Next)), nil
}

func (s *session) authMiddleware(ctx context.Context, id string) *domain.Middleware {
	if id == "" {
		return nil
	}
	mw := s.engine.utilities(ctx).Middleware(id)
	if mw == nil {
		s.log.Warn("middleware not defined", "middleware", id)
		return nil
	}
	if mw.Kind != domain.MiddlewareHTTPAuth {
		return nil
	}
	return mw
}

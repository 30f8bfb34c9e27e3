package docsserver

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers that must not be copied between hops.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// handleProxy forwards /api/{path} requests to the upstream API server
// and adds CORS headers so browser clients can call it from the docs UI.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if path == "" {
		path = "/"
	}

	target := s.upstreamURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Copy request headers, dropping Host and hop-by-hop headers
	for name, values := range r.Header {
		if hopByHopHeaders[http.CanonicalHeaderKey(name)] || strings.EqualFold(name, "Host") {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Str("target", target).Msg("Proxy request failed")
		if s.metrics != nil {
			s.metrics.ProxyErrorsTotal.Inc()
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		if hopByHopHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	setCORSHeaders(w.Header())

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Warn().Err(err).Str("target", target).Msg("Failed to copy proxy response")
	}

	if s.metrics != nil {
		s.metrics.ProxyRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(resp.StatusCode)).Inc()
		s.metrics.ProxyRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	}

	s.logger.Debug().
		Str("method", r.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Proxied API request")
}

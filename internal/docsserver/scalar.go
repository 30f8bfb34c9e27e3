package docsserver

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const scalarPage = `<!DOCTYPE html>
<html>
<head>
    <title>Agent API Reference</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
    <script id="api-reference" data-url="/openapi-proxy.json"></script>
    <script>
        document.getElementById('api-reference').dataset.configuration = JSON.stringify(%s);
    </script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`

// handleScalar serves the Scalar documentation UI. The page loads the
// rewritten OpenAPI document from this origin and offers both the CORS
// proxy and the direct API server as targets.
func (s *Server) handleScalar(w http.ResponseWriter, _ *http.Request) {
	config := map[string]interface{}{
		"layout":       "modern",
		"darkMode":     true,
		"showSidebar":  true,
		"searchHotKey": "k",
		"hideModels":   false,
		"servers": []map[string]string{
			{"url": "/api", "description": "CORS proxy (use this for browser testing)"},
			{"url": s.upstreamURL, "description": "Direct agent API server"},
		},
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render documentation page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, scalarPage, configJSON)
}

package docsserver

import (
	"encoding/json"
	"io"
	"net/http"
)

const apiDescription = `## Agent API

This API provides endpoints for interacting with configured agents.

### Quick Start:
1. Click on any endpoint below to expand it
2. Click "Try it out"
3. Fill in any required parameters
4. Click "Execute" to test the endpoint

### Key Endpoints:
- **GET /list-agents** - List all available agents with detailed information
- **POST /apps/{app}/users/{user}/sessions** - Create a new chat session
- **POST /run** - Send a message to an agent`

// handleOpenAPIProxy fetches the upstream OpenAPI document, rewrites the
// info block and adjusts the agent-listing paths before returning it.
// Serving the document from this origin avoids CORS issues in the UI.
func (s *Server) handleOpenAPIProxy(w http.ResponseWriter, _ *http.Request) {
	resp, err := s.client.Get(s.upstreamURL + "/openapi.json")
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch upstream OpenAPI document")
		if s.metrics != nil {
			s.metrics.ProxyErrorsTotal.Inc()
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, http.StatusBadGateway, "upstream returned invalid OpenAPI document")
		return
	}

	rewriteOpenAPI(doc)
	writeJSON(w, http.StatusOK, doc)
}

// rewriteOpenAPI applies the documentation overrides: friendlier info
// block, a guaranteed /list-agents entry, and /list-apps deprecation.
func rewriteOpenAPI(doc map[string]interface{}) {
	info, ok := doc["info"].(map[string]interface{})
	if !ok {
		info = map[string]interface{}{}
		doc["info"] = info
	}
	info["title"] = "Agent API"
	info["description"] = apiDescription

	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		paths = map[string]interface{}{}
		doc["paths"] = paths
	}

	if _, exists := paths["/list-agents"]; !exists {
		paths["/list-agents"] = map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List Available Agents with Details",
				"description": "Returns a detailed list of all available agents with display names, models and descriptions.",
				"tags":        []string{"Agent Management"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Agent details",
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{"type": "object"},
							},
						},
					},
				},
			},
		}
	}

	if listApps, ok := paths["/list-apps"].(map[string]interface{}); ok {
		if get, ok := listApps["get"].(map[string]interface{}); ok {
			get["summary"] = "[DEPRECATED] List Available Agent Applications"
			get["description"] = "**DEPRECATED: Use /list-agents instead for detailed agent information**"
			get["tags"] = []string{"Agent Management"}
			get["deprecated"] = true
		}
	}
}

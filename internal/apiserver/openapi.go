package apiserver

import (
	"net/http"
)

// handleOpenAPI serves a generated OpenAPI 3 document describing the API
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.openAPIDocument())
}

func (s *Server) openAPIDocument() map[string]interface{} {
	jsonResponse := func(description string) map[string]interface{} {
		return map[string]interface{}{
			"description": description,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]interface{}{"type": "object"},
				},
			},
		}
	}

	sessionParams := []map[string]interface{}{
		{"name": "app", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
		{"name": "user", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
	}
	sessionIDParam := map[string]interface{}{
		"name": "id", "in": "path", "required": true, "schema": map[string]string{"type": "string"},
	}

	return map[string]interface{}{
		"openapi": "3.1.0",
		"info": map[string]interface{}{
			"title":       "Agent API",
			"description": "HTTP API for running configured agents",
			"version":     "1.0.0",
		},
		"paths": map[string]interface{}{
			"/healthz": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"operationId": "healthz",
					"responses": map[string]interface{}{
						"200": jsonResponse("Server is healthy"),
					},
				},
			},
			"/list-apps": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List App IDs",
					"operationId": "listApps",
					"responses": map[string]interface{}{
						"200": jsonResponse("Agent IDs"),
					},
				},
			},
			"/list-agents": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List Agents",
					"operationId": "listAgents",
					"responses": map[string]interface{}{
						"200": jsonResponse("Agent descriptions with display names"),
					},
				},
			},
			"/apps/{app}/users/{user}/sessions": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Create Session",
					"operationId": "createSession",
					"parameters":  sessionParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Created session"),
						"404": jsonResponse("Unknown app"),
					},
				},
				"get": map[string]interface{}{
					"summary":     "List Sessions",
					"operationId": "listSessions",
					"parameters":  sessionParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Sessions for the app and user"),
					},
				},
			},
			"/apps/{app}/users/{user}/sessions/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get Session",
					"operationId": "getSession",
					"parameters":  append(sessionParams, sessionIDParam),
					"responses": map[string]interface{}{
						"200": jsonResponse("Session with events"),
						"404": jsonResponse("Session not found"),
					},
				},
				"delete": map[string]interface{}{
					"summary":     "Delete Session",
					"operationId": "deleteSession",
					"parameters":  append(sessionParams, sessionIDParam),
					"responses": map[string]interface{}{
						"200": jsonResponse("Session deleted"),
						"404": jsonResponse("Session not found"),
					},
				},
			},
			"/run": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Run Agent",
					"operationId": "run",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type":     "object",
									"required": []string{"app_name", "user_id", "session_id", "new_message"},
									"properties": map[string]interface{}{
										"app_name":   map[string]string{"type": "string"},
										"user_id":    map[string]string{"type": "string"},
										"session_id": map[string]string{"type": "string"},
										"new_message": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"role": map[string]string{"type": "string"},
												"parts": map[string]interface{}{
													"type": "array",
													"items": map[string]interface{}{
														"type": "object",
														"properties": map[string]interface{}{
															"text": map[string]string{"type": "string"},
														},
													},
												},
											},
										},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Run result with produced events"),
						"400": jsonResponse("Invalid request"),
						"404": jsonResponse("Unknown app or session"),
					},
				},
			},
		},
	}
}

// File: internal/server/types.go
package server

// ResolveRequest is the body of POST /api/v1/resolve.
type ResolveRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Browser  bool   `json:"browser"`
	Snapshot bool   `json:"snapshot"`
}

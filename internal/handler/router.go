package handler

import (
	"net/http"

	"planwise/internal/httputil"
)

// Handlers groups every HTTP handler for route registration
type Handlers struct {
	Projects  *ProjectHandler
	Documents *DocumentHandler
	Assistant *AssistantHandler
	Events    *EventsHandler
}

// Register mounts every route on mux using Go 1.22 method patterns
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", Health)

	// Projects and membership
	mux.HandleFunc("GET /api/projects", h.Projects.ListProjects)
	mux.HandleFunc("POST /api/projects", h.Projects.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", h.Projects.GetProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.Projects.DeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/members", h.Projects.ListMembers)
	mux.HandleFunc("POST /api/projects/{id}/members", h.Projects.AddMember)
	mux.HandleFunc("DELETE /api/projects/{id}/members/{userID}", h.Projects.RemoveMember)

	// Documents
	mux.HandleFunc("GET /api/projects/{id}/documents", h.Documents.ListDocuments)
	mux.HandleFunc("POST /api/projects/{id}/documents", h.Documents.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", h.Documents.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", h.Documents.DeleteDocument)

	// Lifecycle
	mux.HandleFunc("POST /api/documents/{id}/request-approval", h.Documents.RequestApproval)
	mux.HandleFunc("POST /api/documents/{id}/approve", h.Documents.Approve)
	mux.HandleFunc("POST /api/documents/{id}/reject", h.Documents.Reject)
	mux.HandleFunc("GET /api/approvals/pending", h.Documents.ListPendingApprovals)

	// Versions and audit trail
	mux.HandleFunc("GET /api/documents/{id}/versions", h.Documents.ListVersions)
	mux.HandleFunc("GET /api/documents/{id}/versions/{version}", h.Documents.GetVersion)
	mux.HandleFunc("GET /api/documents/{id}/diff", h.Documents.DiffVersions)
	mux.HandleFunc("POST /api/documents/{id}/restore", h.Documents.RestoreVersion)
	mux.HandleFunc("GET /api/documents/{id}/history", h.Documents.ListApprovalHistory)

	// Autosave
	mux.HandleFunc("PUT /api/documents/{id}/autosave", h.Documents.ScheduleAutosave)
	mux.HandleFunc("POST /api/documents/{id}/autosave/flush", h.Documents.FlushAutosave)

	// Assistant
	mux.HandleFunc("GET /api/projects/{id}/steps", h.Assistant.ListSteps)
	mux.HandleFunc("GET /api/projects/{id}/steps/{step}/conversation", h.Assistant.ListConversation)
	mux.HandleFunc("POST /api/projects/{id}/steps/{step}/chat", h.Assistant.Chat)
	mux.HandleFunc("POST /api/projects/{id}/steps/{step}/chat/stream", h.Assistant.StreamChat)
	mux.HandleFunc("POST /api/projects/{id}/steps/{step}/generate", h.Assistant.GenerateDocument)
	mux.HandleFunc("POST /api/projects/{id}/steps/{step}/generate/stream", h.Assistant.StreamGenerateDocument)
	mux.HandleFunc("POST /api/documents/{id}/conflicts", h.Assistant.AnalyzeConflicts)

	// Change propagation
	mux.HandleFunc("GET /api/projects/{id}/events", h.Events.StreamEvents)
}

// Health reports liveness
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"planwise/internal/domain"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/httputil"
	"planwise/internal/validate"
)

// DocumentHandler handles the document lifecycle, version trail and autosave
type DocumentHandler struct {
	documentService planningSvc.DocumentService
	versionService  planningSvc.VersionService
	autosave        planningSvc.AutosaveService
	logger          *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	documentService planningSvc.DocumentService,
	versionService planningSvc.VersionService,
	autosave planningSvc.AutosaveService,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		versionService:  versionService,
		autosave:        autosave,
		logger:          logger,
	}
}

// patchDocumentRequest distinguishes absent fields from explicit nulls,
// which are rejected: neither title nor content can be cleared.
type patchDocumentRequest struct {
	Title   httputil.Field[string] `json:"title"`
	Content httputil.Field[string] `json:"content"`
}

func (p *patchDocumentRequest) toUpdate() (*planningSvc.UpdateDocumentRequest, error) {
	if p.Title.Null {
		return nil, &domain.ValidationError{Message: "title cannot be null"}
	}
	if p.Content.Null {
		return nil, &domain.ValidationError{Message: "content cannot be null"}
	}
	return &planningSvc.UpdateDocumentRequest{
		Title:   p.Title.Ptr(),
		Content: p.Content.Ptr(),
	}, nil
}

// CreateDocument creates a private draft in a project
// POST /api/projects/{id}/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req planningSvc.CreateDocumentRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.ProjectID = projectID

	doc, err := h.documentService.CreateDocument(r.Context(), httputil.GetActor(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ListDocuments lists a project's documents visible to the caller
// GET /api/projects/{id}/documents?step=N&status=S
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	req := &planningSvc.ListDocumentsRequest{ProjectID: projectID}

	step, err := httputil.QueryInt(r, "step")
	if err != nil {
		handleError(w, err)
		return
	}
	req.WorkflowStep = step

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := validate.Status(raw)
		if err != nil {
			handleError(w, err)
			return
		}
		req.Status = &status
	}

	docs, err := h.documentService.ListDocuments(r.Context(), httputil.GetActor(r), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetDocument retrieves a document
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), httputil.GetActor(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument edits a private draft
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var patch patchDocumentRequest
	if !parseBody(w, r, &patch) {
		return
	}
	req, err := patch.toUpdate()
	if err != nil {
		handleError(w, err)
		return
	}

	doc, err := h.documentService.UpdateDocument(r.Context(), httputil.GetActor(r), docID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteDocument deletes a document
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	if err := h.documentService.DeleteDocument(r.Context(), httputil.GetActor(r), docID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RequestApproval submits a private draft for review
// POST /api/documents/{id}/request-approval
func (h *DocumentHandler) RequestApproval(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.documentService.RequestApproval)
}

// Approve makes a pending document official (admin only)
// POST /api/documents/{id}/approve
func (h *DocumentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.documentService.Approve)
}

type rejectRequest struct {
	Reason *string `json:"reason"`
}

// Reject returns a pending document to its author (admin only).
// The body is optional.
// POST /api/documents/{id}/reject
func (h *DocumentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var req rejectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		handleError(w, &domain.ValidationError{Message: "invalid request body"})
		return
	}

	doc, err := h.documentService.Reject(r.Context(), httputil.GetActor(r), docID, req.Reason)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// transition runs a body-less lifecycle operation on the path document
func (h *DocumentHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error),
) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	doc, err := apply(r.Context(), httputil.GetActor(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ListPendingApprovals returns the review queue (admin only)
// GET /api/approvals/pending
func (h *DocumentHandler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documentService.ListPendingApprovals(r.Context(), httputil.GetActor(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// ListVersions returns every snapshot of a document
// GET /api/documents/{id}/versions
func (h *DocumentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	versions, err := h.versionService.ListVersions(r.Context(), httputil.GetActor(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// GetVersion returns one snapshot
// GET /api/documents/{id}/versions/{version}
func (h *DocumentHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}
	version, ok := pathInt(w, r, "version")
	if !ok {
		return
	}

	v, err := h.versionService.GetVersion(r.Context(), httputil.GetActor(r), docID, version)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, v)
}

// DiffVersions compares two snapshots line by line
// GET /api/documents/{id}/diff?from=N&to=M
func (h *DocumentHandler) DiffVersions(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	from, err := httputil.QueryInt(r, "from")
	if err != nil {
		handleError(w, err)
		return
	}
	to, err := httputil.QueryInt(r, "to")
	if err != nil {
		handleError(w, err)
		return
	}
	if from == nil || to == nil {
		handleError(w, &domain.ValidationError{Message: "from and to query parameters are required"})
		return
	}

	diff, err := h.versionService.DiffVersions(r.Context(), httputil.GetActor(r), docID, *from, *to)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, diff)
}

type restoreRequest struct {
	Version int `json:"version"`
}

// RestoreVersion writes an earlier snapshot's content as the newest version
// POST /api/documents/{id}/restore
func (h *DocumentHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var req restoreRequest
	if !parseBody(w, r, &req) {
		return
	}

	doc, err := h.versionService.RestoreVersion(r.Context(), httputil.GetActor(r), docID, req.Version)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ListApprovalHistory returns the audit trail of a document
// GET /api/documents/{id}/history
func (h *DocumentHandler) ListApprovalHistory(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	entries, err := h.versionService.ListApprovalHistory(r.Context(), httputil.GetActor(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}

// ScheduleAutosave buffers an edit; the save runs after the quiet period
// PUT /api/documents/{id}/autosave
func (h *DocumentHandler) ScheduleAutosave(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var patch patchDocumentRequest
	if !parseBody(w, r, &patch) {
		return
	}
	req, err := patch.toUpdate()
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.autosave.Schedule(httputil.GetActor(r), docID, req); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, map[string]string{
		"document_id": docID,
		"status":      "scheduled",
	})
}

// FlushAutosave runs the caller's pending save now.
// Responds 204 when nothing was pending.
// POST /api/documents/{id}/autosave/flush
func (h *DocumentHandler) FlushAutosave(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	doc, err := h.autosave.Flush(r.Context(), httputil.GetActor(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}
	if doc == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

package project

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/siteshift/siteshift/internal/auth"
	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/job"
)

const maxBody = 32 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the document API on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/documents", h.List).Methods("GET")
	r.HandleFunc("/documents", h.Create).Methods("POST")
	r.HandleFunc("/documents/sample", h.CreateSample).Methods("POST")
	r.HandleFunc("/documents/{documentId}", h.Get).Methods("GET")
	r.HandleFunc("/documents/{documentId}/entities/{entityId}", h.GetEntity).Methods("GET")
	r.HandleFunc("/documents/{documentId}/inspect", h.Inspect).Methods("GET")
	r.HandleFunc("/documents/{documentId}/transform", h.Transform).Methods("POST")
	r.HandleFunc("/diagnose", h.Diagnose).Methods("POST")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var snap document.Snapshot
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	created, err := h.service.Create(r.Context(), &snap)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) CreateSample(w http.ResponseWriter, r *http.Request) {
	created, err := h.service.CreateSample(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), mux.Vars(r)["documentId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	e, err := h.service.Entity(r.Context(), vars["documentId"], vars["entityId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) Inspect(w http.ResponseWriter, r *http.Request) {
	var f document.Filter
	f.Categories = r.URL.Query()["category"]
	reports, err := h.service.Inspect(r.Context(), mux.Vars(r)["documentId"], f)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Transform applies a job to a document. The body is a job in JSON, YAML or
// TOML, picked from Content-Type. A committed transaction answers 200, a
// rolled back one 422; both carry the full result.
func (h *Handler) Transform(w http.ResponseWriter, r *http.Request) {
	j, err := readJob(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	req, err := j.Request()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	documentID := mux.Vars(r)["documentId"]
	res, err := h.service.Transform(r.Context(), documentID, r.Header.Get("X-Request-ID"), req)
	if res == nil {
		handleServiceError(w, err)
		return
	}
	if err != nil && !res.Committed() {
		slog.Info("transform rolled back",
			"document", documentID,
			"subject", auth.SubjectFromContext(r.Context()),
			"code", errors.GetCode(err),
		)
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	if err != nil {
		// Committed but not persisted.
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Diagnose reports what a job's transform does to its probe point.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	j, err := readJob(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	t, err := j.Transform()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	probe, err := j.ProbePoint()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	d, err := h.service.Diagnose(t, probe)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func readJob(r *http.Request) (*job.Job, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	return job.Parse(data, formatOf(r.Header.Get("Content-Type")))
}

func formatOf(contentType string) job.Format {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return job.FormatYAML
	case "application/toml", "text/toml":
		return job.FormatTOML
	}
	return job.FormatJSON
}

func statusOf(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeMalformedTransform:
		return http.StatusBadRequest
	case errors.ErrCodeScopeActive:
		return http.StatusConflict
	case errors.ErrCodeUnsupportedEntityKind, errors.ErrCodeRelationshipCycle,
		errors.ErrCodeOrientationDecomposition, errors.ErrCodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeCancelled:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func handleServiceError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusOf(code)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error", "code": string(errors.ErrCodeInternal)})
		return
	}
	writeJSON(w, status, map[string]string{"error": errors.UserMessage(err), "code": string(code)})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

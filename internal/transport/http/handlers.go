package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"projectforge-service/internal/app"
	"projectforge-service/internal/domain"
)

// maxScreenshotBytes caps a single screenshot upload.
const maxScreenshotBytes = 10 << 20

// Handler exposes the REST surface. The authenticated user ID arrives in the
// X-User-ID header; authentication itself lives with the external identity
// provider, this service only consumes the identity string.
type Handler struct {
	progress  *app.ProgressService
	portfolio *app.PortfolioService
	catalog   app.CatalogRepository
	blobs     app.BlobStore
}

func NewHandler(progress *app.ProgressService, portfolio *app.PortfolioService, catalog app.CatalogRepository, blobs app.BlobStore) *Handler {
	return &Handler{progress: progress, portfolio: portfolio, catalog: catalog, blobs: blobs}
}

// Register wires all REST routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /projects", h.listProjects)
	mux.HandleFunc("GET /projects/{id}", h.getProject)
	mux.HandleFunc("POST /projects/{id}/start", h.startProject)
	mux.HandleFunc("GET /projects/{id}/progress", h.getStatus)
	mux.HandleFunc("POST /projects/{id}/screenshots/{index}", h.uploadScreenshot)
	mux.HandleFunc("POST /projects/{id}/advance", h.advance)
	mux.HandleFunc("POST /projects/{id}/milestone/{index}", h.selectMilestone)
	mux.HandleFunc("GET /projects/{id}/quiz", h.getQuiz)
	mux.HandleFunc("POST /projects/{id}/quiz", h.submitQuiz)
	mux.HandleFunc("POST /projects/{id}/finalize", h.finalize)
	mux.HandleFunc("POST /projects/{id}/grade", h.gradeApproach)
	mux.HandleFunc("GET /portfolio/{userID}", h.listPortfolio)
	mux.HandleFunc("GET /blobs/{key...}", h.serveBlob)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.catalog.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.catalog.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) startProject(w http.ResponseWriter, r *http.Request) {
	view, err := h.progress.Start(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.progress.Status(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) uploadScreenshot(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid milestone index"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxScreenshotBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read upload"})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "empty upload"})
		return
	}
	view, err := h.progress.UploadScreenshot(r.Context(), userID(r), r.PathValue("id"), index, data, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	view, err := h.progress.Advance(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) selectMilestone(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid milestone index"})
		return
	}
	view, err := h.progress.SelectMilestone(r.Context(), userID(r), r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	questions, err := h.progress.Questions(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers []int `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid quiz payload"})
		return
	}
	view, err := h.progress.SubmitQuiz(r.Context(), userID(r), r.PathValue("id"), body.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid finalize payload"})
		return
	}
	view, err := h.progress.Finalize(r.Context(), userID(r), r.PathValue("id"), body.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) gradeApproach(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid grade payload"})
		return
	}
	verdict, err := h.progress.GradeApproach(r.Context(), userID(r), r.PathValue("id"), body.Summary)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.Verdict{"verdict": verdict})
}

func (h *Handler) listPortfolio(w http.ResponseWriter, r *http.Request) {
	completions, err := h.portfolio.ListCompletions(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completions)
}

func (h *Handler) serveBlob(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.blobs.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, err)
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps domain sentinels onto HTTP statuses. Anything unmapped is
// an upstream failure and surfaces as a generic try-again message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrProgressNotFound),
		errors.Is(err, domain.ErrBlobNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrQuizAlreadySubmitted):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNoMilestones),
		errors.Is(err, domain.ErrMilestoneOutOfRange),
		errors.Is(err, domain.ErrScreenshotRequired),
		errors.Is(err, domain.ErrQuizIncomplete),
		errors.Is(err, domain.ErrQuizNotReached),
		errors.Is(err, domain.ErrQuizRequired),
		errors.Is(err, domain.ErrInvalidSubmissionURL),
		errors.Is(err, domain.ErrSummaryTooShort),
		errors.Is(err, domain.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "operation failed, try again"})
	}
}

// Package api exposes column detection, assessment and run history over
// HTTP for the dashboard front end.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/assess"
	"github.com/sells-group/risk-cli/internal/columns"
	"github.com/sells-group/risk-cli/internal/llm"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/search"
	"github.com/sells-group/risk-cli/internal/sheet"
	"github.com/sells-group/risk-cli/internal/store"
)

const maxUploadBytes = 32 << 20

// Assessor is the part of the engine the handlers drive.
type Assessor interface {
	Columns(ds *model.Dataset) (model.ColumnRoleMap, error)
	Run(ctx context.Context, req assess.Request) ([]model.AssessmentResult, error)
}

// RunStore persists assessment runs. It may be nil, in which case saving is
// skipped and the run history routes answer 404.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Handler serves the API routes.
type Handler struct {
	assessor Assessor
	runs     RunStore
}

// NewHandler returns a Handler. runs may be nil.
func NewHandler(assessor Assessor, runs RunStore) *Handler {
	return &Handler{assessor: assessor, runs: runs}
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/columns", h.DetectColumns)
		r.Post("/assess", h.Assess)
		r.Post("/assess/upload", h.AssessUpload)
		r.Get("/runs", h.ListRuns)
		r.Get("/runs/{id}", h.GetRun)
	})
}

// datasetBody carries a sheet as a header plus raw records.
type datasetBody struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func (b datasetBody) dataset() (*model.Dataset, error) {
	if len(b.Columns) == 0 {
		return nil, eris.New("columns is required")
	}
	return model.NewDataset(sheet.Header(b.Columns), b.Rows), nil
}

// selection names what to assess within a dataset.
type selection struct {
	Companies []string `json:"companies"`
	Modes     []string `json:"modes"`
	Providers []string `json:"providers"`
	TopicHint string   `json:"topic_hint"`
	Save      bool     `json:"save"`
	Source    string   `json:"source"`
}

type assessBody struct {
	datasetBody
	selection
}

type assessResponse struct {
	RunID   string                   `json:"run_id,omitempty"`
	Summary model.RunSummary         `json:"summary"`
	Results []model.AssessmentResult `json:"results"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DetectColumns returns the role map for a header and optional rows.
func (h *Handler) DetectColumns(w http.ResponseWriter, r *http.Request) {
	var body datasetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ds, err := body.dataset()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	roles, err := h.assessor.Columns(ds)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// Assess runs a synchronous assessment over an inline dataset.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	var body assessBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ds, err := body.dataset()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Source == "" {
		body.Source = "api"
	}
	h.run(w, r, ds, body.selection)
}

// AssessUpload runs an assessment over an uploaded spreadsheet. The
// selection is read from form fields; list fields are comma separated.
func (h *Handler) AssessUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck

	ds, err := sheet.Read(file, header.Filename, sheet.Options{SheetName: r.FormValue("sheet")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	save, _ := strconv.ParseBool(r.FormValue("save"))
	h.run(w, r, ds, selection{
		Companies: formList(r, "companies"),
		Modes:     formList(r, "modes"),
		Providers: formList(r, "providers"),
		TopicHint: r.FormValue("topic_hint"),
		Save:      save,
		Source:    header.Filename,
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, ds *model.Dataset, sel selection) {
	modes, err := model.ParseModes(sel.Modes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	providers, err := search.ParseProviders(sel.Providers)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.assessor.Run(r.Context(), assess.Request{
		Dataset:   ds,
		Companies: sel.Companies,
		Modes:     modes,
		Providers: providers,
		TopicHint: sel.TopicHint,
	})
	if err != nil {
		zap.L().Error("api: assessment failed", zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := assessResponse{Summary: model.Summarize(results), Results: results}
	if sel.Save && h.runs != nil {
		run := &model.Run{
			Source:    sel.Source,
			Modes:     modes,
			Providers: sel.Providers,
			Results:   results,
		}
		if err := h.runs.SaveRun(r.Context(), run); err != nil {
			zap.L().Warn("api: failed to save run", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns saved runs, newest first, without their results.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	filter := store.RunFilter{Company: r.URL.Query().Get("company")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	runs, err := h.runs.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one saved run with its results.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func formList(r *http.Request, key string) []string {
	var out []string
	for _, v := range strings.Split(r.FormValue(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assess.ErrNoDataset),
		errors.Is(err, sheet.ErrEmpty),
		errors.Is(err, sheet.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, columns.ErrNoCompanyColumn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, assess.ErrInvalidEndpoint), llm.IsUnavailable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package server

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vanshika/ownergraph/backend/internal/domain"
	"github.com/vanshika/ownergraph/backend/internal/service"
)

// OrgHeader carries the organization a request is scoped to.
const OrgHeader = "X-Org-ID"

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger     *slog.Logger
	service    *service.ComplianceService
	defaultOrg string
}

// NewAPIHandlers constructs an APIHandlers instance. Requests without an
// X-Org-ID header are scoped to defaultOrg.
func NewAPIHandlers(logger *slog.Logger, svc *service.ComplianceService, defaultOrg string) *APIHandlers {
	return &APIHandlers{
		logger:     logger,
		service:    svc,
		defaultOrg: defaultOrg,
	}
}

// Register mounts the compliance and contact routes.
func (h *APIHandlers) Register(r chi.Router) {
	r.Route("/compliance", func(r chi.Router) {
		r.Get("/graph", h.handleGraph)
		r.Get("/graph/layout", h.handleGetLayout)
		r.Post("/graph/layout", h.handleSaveLayout)
		r.Get("/ubo", h.handleUBO)
		r.Get("/validation", h.handleValidation)
		r.Get("/audit", h.handleAudit)
		r.Get("/dashboard-summary", h.handleDashboardSummary)
		r.Get("/ownership-links", h.handleListLinks)
		r.Post("/ownership-links", h.handleCreateLink)
		r.Get("/ownership-links/{linkID}", h.handleGetLink)
		r.Patch("/ownership-links/{linkID}", h.handleUpdateLink)
		r.Delete("/ownership-links/{linkID}", h.handleDeleteLink)
		r.Get("/risk/{contactID}", h.handleGetRisk)
		r.Post("/risk/{contactID}/recalculate", h.handleRecalculateRisk)
	})
	r.Put("/contacts/{contactID}", h.handleUpsertContact)
	r.Get("/contacts/{contactID}/links", h.handleContactLinks)
}

func (h *APIHandlers) orgID(r *http.Request) string {
	if org := strings.TrimSpace(r.Header.Get(OrgHeader)); org != "" {
		return org
	}
	return h.defaultOrg
}

func (h *APIHandlers) handleGraph(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	includeAll, err := parseBool(query.Get("include_all_links"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid include_all_links")
		return
	}

	view, err := h.service.Graph(r.Context(), h.orgID(r), query.Get("root_contact_id"), includeAll)
	if err != nil {
		h.writeServiceError(w, err, "failed to load graph")
		return
	}
	respondJSON(w, http.StatusOK, toGraphResponse(view))
}

func (h *APIHandlers) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := h.service.GetLayout(r.Context(), h.orgID(r), r.URL.Query().Get("root_contact_id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to load layout")
		return
	}
	respondJSON(w, http.StatusOK, toLayoutResponse(layout))
}

func (h *APIHandlers) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	var payload layoutRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions := make(map[string]domain.Position, len(payload.Positions))
	for id, p := range payload.Positions {
		positions[id] = domain.Position{X: p.X, Y: p.Y}
	}
	if err := h.service.SaveLayout(r.Context(), h.orgID(r), payload.RootContactID, positions); err != nil {
		h.writeServiceError(w, err, "failed to save layout")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: strings.TrimSpace(payload.RootContactID)})
}

func (h *APIHandlers) handleUBO(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ResolveUBOs(r.Context(), h.orgID(r), r.URL.Query().Get("entity_contact_id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to resolve beneficial owners")
		return
	}
	respondJSON(w, http.StatusOK, toUBOResponse(res))
}

func (h *APIHandlers) handleValidation(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Validate(r.Context(), h.orgID(r), r.URL.Query().Get("entity_contact_id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to validate ownership structure")
		return
	}
	respondJSON(w, http.StatusOK, toValidationResponse(res))
}

func (h *APIHandlers) handleAudit(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Audit(r.Context(), h.orgID(r), r.URL.Query().Get("entity_contact_id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to audit ownership structure")
		return
	}
	respondJSON(w, http.StatusOK, toAuditResponse(res))
}

func (h *APIHandlers) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	rows, err := h.service.DashboardSummary(r.Context(), h.orgID(r))
	if err != nil {
		h.writeServiceError(w, err, "failed to build dashboard summary")
		return
	}

	if format == "csv" {
		h.writeDashboardCSV(w, rows)
		return
	}

	resp := dashboardResponse{Entities: make([]dashboardEntityResponse, 0, len(rows))}
	for _, row := range rows {
		resp.Entities = append(resp.Entities, toDashboardEntity(row))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) writeDashboardCSV(w http.ResponseWriter, rows []domain.EntitySummary) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard-summary.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"contact_id", "name", "jurisdiction", "ubo_count", "ownership_sum_valid", "has_cycles", "dead_end_count", "warnings"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.Entity.ID,
			row.Entity.Name,
			row.Entity.Jurisdiction,
			strconv.Itoa(row.UBOCount),
			strconv.FormatBool(row.OwnershipSumValid),
			strconv.FormatBool(row.HasCycles),
			strconv.Itoa(row.DeadEndCount),
			strings.Join(row.Warnings, " | "),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("failed to write dashboard csv", "error", err)
	}
}

func (h *APIHandlers) handleListLinks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	links, err := h.service.ListLinks(r.Context(), h.orgID(r), service.LinkFilter{
		OwnerID: query.Get("owner_contact_id"),
		OwnedID: query.Get("owned_contact_id"),
		Type:    query.Get("link_type"),
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to list ownership links")
		return
	}

	resp := linkListResponse{Links: make([]linkResponse, 0, len(links))}
	for _, link := range links {
		resp.Links = append(resp.Links, toLinkResponse(link))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var payload linkRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input, err := payload.toServiceInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	link, err := h.service.AddLink(r.Context(), h.orgID(r), input)
	if err != nil {
		h.writeServiceError(w, err, "failed to create ownership link")
		return
	}
	respondJSON(w, http.StatusCreated, toLinkResponse(link))
}

func (h *APIHandlers) handleGetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.GetLink(r.Context(), h.orgID(r), chi.URLParam(r, "linkID"))
	if err != nil {
		h.writeServiceError(w, err, "failed to load ownership link")
		return
	}
	respondJSON(w, http.StatusOK, toLinkResponse(link))
}

func (h *APIHandlers) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	var payload linkUpdateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	link, err := h.service.UpdateLink(r.Context(), h.orgID(r), chi.URLParam(r, "linkID"), payload.toServiceInput())
	if err != nil {
		h.writeServiceError(w, err, "failed to update ownership link")
		return
	}
	respondJSON(w, http.StatusOK, toLinkResponse(link))
}

func (h *APIHandlers) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveLink(r.Context(), h.orgID(r), chi.URLParam(r, "linkID")); err != nil {
		h.writeServiceError(w, err, "failed to delete ownership link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	risk, err := h.service.RiskScore(r.Context(), h.orgID(r), chi.URLParam(r, "contactID"))
	if err != nil {
		h.writeServiceError(w, err, "failed to load risk score")
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (h *APIHandlers) handleRecalculateRisk(w http.ResponseWriter, r *http.Request) {
	risk, err := h.service.RecalculateRisk(r.Context(), h.orgID(r), chi.URLParam(r, "contactID"))
	if err != nil {
		h.writeServiceError(w, err, "failed to calculate risk score")
		return
	}
	respondJSON(w, http.StatusOK, toRiskResponse(risk))
}

func (h *APIHandlers) handleUpsertContact(w http.ResponseWriter, r *http.Request) {
	var payload contactRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	input := payload.toServiceInput(chi.URLParam(r, "contactID"))
	e, err := h.service.UpsertEntity(r.Context(), h.orgID(r), input)
	if err != nil {
		h.writeServiceError(w, err, "failed to persist contact")
		return
	}
	respondJSON(w, http.StatusOK, toContactResponse(e))
}

func (h *APIHandlers) handleContactLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ContactLinks(r.Context(), h.orgID(r), chi.URLParam(r, "contactID"))
	if err != nil {
		h.writeServiceError(w, err, "failed to load contact links")
		return
	}
	respondJSON(w, http.StatusOK, toContactLinksResponse(links))
}

// writeServiceError maps domain sentinels onto status codes. Unexpected
// failures are logged and reported with a generic message.
func (h *APIHandlers) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

func parseTimePtr(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", field)
	}
	return &ts, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// round2 rounds a percentage for presentation.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/application"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// ContentHandlers exposes the content collections over JSON HTTP.
// Method matching is done by the route patterns the handlers are mounted on,
// so each handler only deals with a request of the right shape.
type ContentHandlers struct {
	service *application.ContentService
	logger  domain.Logger
}

// NewContentHandlers creates a new ContentHandlers.
func NewContentHandlers(service *application.ContentService, logger domain.Logger) *ContentHandlers {
	return &ContentHandlers{service: service, logger: logger}
}

func (h *ContentHandlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error(r.Context(), "Failed to encode response", "path", r.URL.Path, "error", err.Error())
	}
}

// writeServiceError maps service errors onto the wire taxonomy. Conditional
// update conflicts are retried inside the store, so by the time an error
// reaches here exhaustion is a server-side failure, not a client one.
func (h *ContentHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, application.ErrValidation):
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
	case errors.Is(err, application.ErrRecordNotFound), errors.Is(err, domain.ErrDocumentNotFound):
		domain.NewErrorResponse(domain.ErrNotFound, "Resource not found", err.Error()).WriteJSON(w, http.StatusNotFound)
	case errors.Is(err, domain.ErrConcurrentUpdateFailed):
		h.logger.Error(r.Context(), "Conditional update retries exhausted", "path", r.URL.Path, "error", err.Error())
		domain.NewErrorResponse(domain.ErrConcurrentModification, "Could not apply update", "The document is under heavy concurrent modification. Retry the request.").WriteJSON(w, http.StatusInternalServerError)
	case errors.Is(err, domain.ErrStorageWrite), errors.Is(err, domain.ErrDocumentDecode):
		h.logger.Error(r.Context(), "Storage failure", "path", r.URL.Path, "error", err.Error())
		domain.NewErrorResponse(domain.ErrStorageFailure, "Storage operation failed", "Internal storage error.").WriteJSON(w, http.StatusInternalServerError)
	default:
		h.logger.Error(r.Context(), "Unhandled service error", "path", r.URL.Path, "error", err.Error())
		domain.NewErrorResponse(domain.ErrInternal, "An unexpected error occurred", "Internal server error.").WriteJSON(w, http.StatusInternalServerError)
	}
}

func decodeBody[T any](h *ContentHandlers, w http.ResponseWriter, r *http.Request) (T, bool) {
	var payload T
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn(r.Context(), "Failed to decode request payload", "path", r.URL.Path, "error", err.Error())
		domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
		return payload, false
	}
	return payload, true
}

// --- Stylists ---

type stylistPayload struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Bio       string `json:"bio"`
	ImageURL  string `json:"image_url"`
	Instagram string `json:"instagram"`
}

func (h *ContentHandlers) ListStylists(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListStylists(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, records)
}

func (h *ContentHandlers) CreateStylist(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeBody[stylistPayload](h, w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateStylist(r.Context(), application.StylistInput{
		Name:      payload.Name,
		Role:      payload.Role,
		Bio:       payload.Bio,
		ImageURL:  payload.ImageURL,
		Instagram: payload.Instagram,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, created)
}

func (h *ContentHandlers) UpdateStylist(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[domain.StylistPatch](h, w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateStylist(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, updated)
}

func (h *ContentHandlers) DeleteStylist(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteStylist(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Styles ---

type stylePayload struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	ImageURL  string `json:"image_url"`
	StylistID string `json:"stylist_id"`
}

func (h *ContentHandlers) ListStyles(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListStyles(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, records)
}

func (h *ContentHandlers) CreateStyle(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeBody[stylePayload](h, w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateStyle(r.Context(), application.StyleImageInput{
		Title:     payload.Title,
		Category:  payload.Category,
		ImageURL:  payload.ImageURL,
		StylistID: payload.StylistID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, created)
}

func (h *ContentHandlers) UpdateStyle(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[domain.StyleImagePatch](h, w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateStyle(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, updated)
}

func (h *ContentHandlers) DeleteStyle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteStyle(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Menu ---

type menuItemPayload struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	PriceYen        int    `json:"price_yen"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *ContentHandlers) ListMenu(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListMenu(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, records)
}

func (h *ContentHandlers) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeBody[menuItemPayload](h, w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateMenuItem(r.Context(), application.MenuItemInput{
		Name:            payload.Name,
		Description:     payload.Description,
		Category:        payload.Category,
		PriceYen:        payload.PriceYen,
		DurationMinutes: payload.DurationMinutes,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, created)
}

func (h *ContentHandlers) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[domain.MenuItemPatch](h, w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateMenuItem(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, updated)
}

func (h *ContentHandlers) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMenuItem(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- News ---

type newsItemPayload struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ImageURL    string    `json:"image_url"`
	PublishedAt time.Time `json:"published_at"`
}

func (h *ContentHandlers) ListNews(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListNews(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, records)
}

func (h *ContentHandlers) CreateNewsItem(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeBody[newsItemPayload](h, w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateNewsItem(r.Context(), application.NewsItemInput{
		Title:       payload.Title,
		Body:        payload.Body,
		ImageURL:    payload.ImageURL,
		PublishedAt: payload.PublishedAt,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, created)
}

func (h *ContentHandlers) UpdateNewsItem(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeBody[domain.NewsItemPatch](h, w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateNewsItem(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, updated)
}

func (h *ContentHandlers) DeleteNewsItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteNewsItem(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Salon info ---

func (h *ContentHandlers) GetSalonInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.GetSalonInfo(r.Context())
	if errors.Is(err, domain.ErrDocumentNotFound) {
		// Salon details have never been set; serve the empty object so the
		// public site can render placeholders.
		h.writeJSON(w, r, http.StatusOK, domain.SalonInfo{})
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, info)
}

func (h *ContentHandlers) ReplaceSalonInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := decodeBody[domain.SalonInfo](h, w, r)
	if !ok {
		return
	}
	if err := h.service.ReplaceSalonInfo(r.Context(), info); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, info)
}

// --- Contact ---

type contactPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Body  string `json:"body"`
}

type contactResponse struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
}

// SubmitContact accepts a contact-form submission. The response deliberately
// omits the submitter's own details.
func (h *ContentHandlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeBody[contactPayload](h, w, r)
	if !ok {
		return
	}
	created, err := h.service.SubmitContact(r.Context(), application.ContactInput{
		Name:  payload.Name,
		Email: payload.Email,
		Phone: payload.Phone,
		Body:  payload.Body,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, contactResponse{ID: created.ID, ReceivedAt: created.ReceivedAt})
}

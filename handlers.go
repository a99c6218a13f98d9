package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"atrium/db"
	"atrium/events"
	"atrium/model"
)

const (
	// maxUploadBytes is the payload ceiling enforced before the bridge
	// is invoked; the bridge itself trusts its caller.
	maxUploadBytes = 2 << 20 // 2MB

	// maxFormMemory caps in-memory multipart form parsing.
	maxFormMemory = 4 << 20

	// maxRequestBytes bounds the whole multipart body so oversized
	// uploads are rejected without spooling to disk first.
	maxRequestBytes = maxUploadBytes + maxFormMemory

	requestTimeout = 30 * time.Second
)

// allowedImageTypes are the content types accepted for record images.
var allowedImageTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// healthzHandler handles the /healthz endpoint
func (app *App) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "atrium admin")
}

// uploadHandler handles POST /uploads/{category}: it buffers the
// uploaded file and hands it to the bridge, returning the reference URL.
func (app *App) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	category := mux.Vars(r)["category"]
	if category == "" {
		writeError(w, http.StatusBadRequest, "missing category")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to get file from form")
		return
	}
	defer file.Close()

	contentType, ok := checkImage(w, header.Size, header.Header.Get("Content-Type"))
	if !ok {
		return
	}

	url, err := app.Bridge.Upload(ctx, file, contentType, category)
	if err != nil {
		log.Printf("Failed to upload file to media host: %v", err)
		writeError(w, http.StatusBadGateway, "failed to upload file")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// listEventsHandler handles GET /events with an optional ?q= substring
// filter over title and description.
func (app *App) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	eventList, err := app.Store.ListEvents(ctx)
	if err != nil {
		log.Printf("Failed to list events: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	eventList = model.FilterEvents(eventList, r.URL.Query().Get("q"))
	if eventList == nil {
		eventList = []model.Event{}
	}

	writeJSON(w, http.StatusOK, eventList)
}

// getEventHandler handles GET /events/{id}
func (app *App) getEventHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	event, err := app.Store.GetEvent(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("Failed to get event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// createEventHandler handles POST /events. The request is a multipart
// form carrying the record fields plus an optional banner image; the
// image goes through the bridge before the record is persisted.
func (app *App) createEventHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	event := model.Event{
		ID:          uuid.New().String(),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Venue:       r.FormValue("venue"),
		Status:      model.EventStatus(r.FormValue("status")),
		CreatedAt:   time.Now().UTC(),
	}
	if event.Status == "" {
		event.Status = model.EventDraft
	}

	var fieldErrs model.FieldErrors
	event.StartsAt, fieldErrs = parseFormTime(r.FormValue("starts_at"), "starts_at", fieldErrs)
	event.EndsAt, fieldErrs = parseFormTime(r.FormValue("ends_at"), "ends_at", fieldErrs)
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fieldErrs})
		return
	}

	if errs := event.Validate(); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		contentType, ok := checkImage(w, header.Size, header.Header.Get("Content-Type"))
		if !ok {
			return
		}
		url, err := app.Bridge.Upload(ctx, file, contentType, "event-banners")
		if err != nil {
			log.Printf("Failed to upload event image: %v", err)
			writeError(w, http.StatusBadGateway, "failed to upload image")
			return
		}
		event.ImageURL = url
	case errors.Is(err, http.ErrMissingFile):
		// Image is optional
	default:
		writeError(w, http.StatusBadRequest, "failed to get image from form")
		return
	}

	if err := app.Store.CreateEvent(ctx, event); err != nil {
		log.Printf("Failed to create event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	app.notify(ctx, "event", "created", event.ID)
	writeJSON(w, http.StatusCreated, event)
}

// updateEventHandler handles PUT /events/{id} as a whole-record replace.
func (app *App) updateEventHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var event model.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	event.ID = mux.Vars(r)["id"]

	if errs := event.Validate(); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	if err := app.Store.UpdateEvent(ctx, event); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("Failed to update event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	app.notify(ctx, "event", "updated", event.ID)
	writeJSON(w, http.StatusOK, event)
}

// deleteEventHandler handles DELETE /events/{id}
func (app *App) deleteEventHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := mux.Vars(r)["id"]
	event, err := app.Store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("Failed to get event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	if err := app.Store.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("Failed to delete event: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	app.removeStoredImage(ctx, event.ImageURL)
	app.notify(ctx, "event", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// listSponsorsHandler handles GET /sponsors with an optional ?q=
// substring filter over name and description.
func (app *App) listSponsorsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sponsorList, err := app.Store.ListSponsors(ctx)
	if err != nil {
		log.Printf("Failed to list sponsors: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list sponsors")
		return
	}

	sponsorList = model.FilterSponsors(sponsorList, r.URL.Query().Get("q"))
	if sponsorList == nil {
		sponsorList = []model.Sponsor{}
	}

	writeJSON(w, http.StatusOK, sponsorList)
}

// getSponsorHandler handles GET /sponsors/{id}
func (app *App) getSponsorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sponsor, err := app.Store.GetSponsor(ctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sponsor not found")
			return
		}
		log.Printf("Failed to get sponsor: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get sponsor")
		return
	}

	writeJSON(w, http.StatusOK, sponsor)
}

// createSponsorHandler handles POST /sponsors. The request is a
// multipart form carrying the record fields plus an optional logo.
func (app *App) createSponsorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	sponsor := model.Sponsor{
		ID:           uuid.New().String(),
		Name:         r.FormValue("name"),
		Description:  r.FormValue("description"),
		Tier:         model.SponsorTier(r.FormValue("tier")),
		Website:      r.FormValue("website"),
		ContactEmail: r.FormValue("contact_email"),
		CreatedAt:    time.Now().UTC(),
	}
	if sponsor.Tier == "" {
		sponsor.Tier = model.TierCommunity
	}

	if errs := sponsor.Validate(); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	file, header, err := r.FormFile("logo")
	switch {
	case err == nil:
		defer file.Close()
		contentType, ok := checkImage(w, header.Size, header.Header.Get("Content-Type"))
		if !ok {
			return
		}
		url, err := app.Bridge.Upload(ctx, file, contentType, "sponsor-logos")
		if err != nil {
			log.Printf("Failed to upload sponsor logo: %v", err)
			writeError(w, http.StatusBadGateway, "failed to upload logo")
			return
		}
		sponsor.LogoURL = url
	case errors.Is(err, http.ErrMissingFile):
		// Logo is optional
	default:
		writeError(w, http.StatusBadRequest, "failed to get logo from form")
		return
	}

	if err := app.Store.CreateSponsor(ctx, sponsor); err != nil {
		log.Printf("Failed to create sponsor: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create sponsor")
		return
	}

	app.notify(ctx, "sponsor", "created", sponsor.ID)
	writeJSON(w, http.StatusCreated, sponsor)
}

// updateSponsorHandler handles PUT /sponsors/{id} as a whole-record
// replace.
func (app *App) updateSponsorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var sponsor model.Sponsor
	if err := json.NewDecoder(r.Body).Decode(&sponsor); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sponsor.ID = mux.Vars(r)["id"]

	if errs := sponsor.Validate(); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	if err := app.Store.UpdateSponsor(ctx, sponsor); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sponsor not found")
			return
		}
		log.Printf("Failed to update sponsor: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update sponsor")
		return
	}

	app.notify(ctx, "sponsor", "updated", sponsor.ID)
	writeJSON(w, http.StatusOK, sponsor)
}

// deleteSponsorHandler handles DELETE /sponsors/{id}
func (app *App) deleteSponsorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := mux.Vars(r)["id"]
	sponsor, err := app.Store.GetSponsor(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sponsor not found")
			return
		}
		log.Printf("Failed to get sponsor: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete sponsor")
		return
	}

	if err := app.Store.DeleteSponsor(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "sponsor not found")
			return
		}
		log.Printf("Failed to delete sponsor: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete sponsor")
		return
	}

	app.removeStoredImage(ctx, sponsor.LogoURL)
	app.notify(ctx, "sponsor", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// removeStoredImage best-effort deletes the stored image a deleted
// record pointed at. The record is already gone, so failures are only
// logged.
func (app *App) removeStoredImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := app.Remover.Remove(ctx, url); err != nil {
		log.Printf("Failed to remove stored image %s: %v", url, err)
	}
}

// notify publishes a change notification. Failures are logged and never
// fail the originating request.
func (app *App) notify(ctx context.Context, kind, action, id string) {
	data, err := json.Marshal(events.RecordChanged{
		ID:         id,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	subject := events.Subject(kind, action)
	if err := app.Publisher.Publish(ctx, subject, data); err != nil {
		log.Printf("Failed to publish %s notification: %v", subject, err)
	}
}

// checkImage enforces the size ceiling and content-type allowlist
// before a payload reaches the bridge. It writes the error response
// itself and reports whether the payload is acceptable.
func checkImage(w http.ResponseWriter, size int64, contentType string) (string, bool) {
	if size > maxUploadBytes {
		writeError(w, http.StatusBadRequest, "file exceeds the 2MB limit")
		return "", false
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !allowedImageTypes[contentType] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported content type: %s", contentType))
		return "", false
	}
	return contentType, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseFormTime parses an RFC 3339 timestamp from a form value. An
// empty value parses to the zero time without error.
func parseFormTime(value, field string, errs model.FieldErrors) (time.Time, model.FieldErrors) {
	if value == "" {
		return time.Time{}, errs
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if errs == nil {
			errs = model.FieldErrors{}
		}
		errs[field] = fmt.Sprintf("%s must be an RFC 3339 timestamp", field)
		return time.Time{}, errs
	}
	return t, errs
}

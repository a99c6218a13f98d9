package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/db"
	"atrium/events"
	"atrium/media"
	"atrium/model"
	"atrium/storage"
)

func newTestApp() (*App, *db.MockDB, *storage.Mock, *events.Noop) {
	store := db.NewMock()
	objects := storage.NewMock()
	publisher := events.NewNoop()

	host := media.NewObjectHost(objects)
	app := &App{
		Store:     store,
		Bridge:    media.NewBridge(host),
		Remover:   host,
		Publisher: publisher,
	}
	return app, store, objects, publisher
}

// multipartBody builds a multipart form with the given fields and, when
// fileField is non-empty, a single file part.
func multipartBody(t *testing.T, fields map[string]string, fileField, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(app *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.router().ServeHTTP(rec, req)
	return rec
}

func TestCreateEventWithImage(t *testing.T) {
	app, store, objects, publisher := newTestApp()

	body, contentType := multipartBody(t, map[string]string{
		"title":       "Summer Meetup",
		"description": "Annual community meetup",
		"venue":       "Town Hall",
		"starts_at":   "2026-09-01T18:00:00Z",
		"status":      "published",
	}, "image", "banner.png", "image/png", []byte("png bytes"))

	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Summer Meetup", created.Title)
	assert.Equal(t, model.EventPublished, created.Status)
	assert.True(t, strings.HasPrefix(created.ImageURL, "https://cdn.example/media/event-banners/"), "got %q", created.ImageURL)
	assert.Equal(t, 1, objects.Len())

	stored, err := store.GetEvent(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ImageURL, stored.ImageURL)

	assert.Equal(t, []string{"admin.event.created"}, publisher.Published())
}

func TestCreateEventWithoutImage(t *testing.T) {
	app, _, objects, _ := newTestApp()

	body, contentType := multipartBody(t, map[string]string{
		"title":       "Planning Session",
		"description": "Quarterly planning",
		"starts_at":   "2026-10-01T10:00:00Z",
	}, "", "", "", nil)

	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.EventDraft, created.Status, "status defaults to draft")
	assert.Empty(t, created.ImageURL)
	assert.Equal(t, 0, objects.Len(), "no upload without an image")
}

func TestCreateEventValidation(t *testing.T) {
	app, _, _, publisher := newTestApp()

	body, contentType := multipartBody(t, map[string]string{
		"description": "missing title and starts_at",
	}, "", "", "", nil)

	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Errors model.FieldErrors `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "title")
	assert.Contains(t, resp.Errors, "starts_at")
	assert.Empty(t, publisher.Published(), "no notification for a rejected record")
}

func TestCreateEventRejectsOversizedImage(t *testing.T) {
	app, _, objects, _ := newTestApp()

	body, contentType := multipartBody(t, map[string]string{
		"title":       "Big Banner",
		"description": "A banner too large to store",
		"starts_at":   "2026-09-01T18:00:00Z",
	}, "image", "huge.png", "image/png", bytes.Repeat([]byte{0xff}, maxUploadBytes+1))

	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "2MB")
	assert.Equal(t, 0, objects.Len(), "oversized payloads never reach the host")
}

func TestListEventsFilter(t *testing.T) {
	app, store, _, _ := newTestApp()

	seed := []model.Event{
		{ID: "1", Title: "Go Workshop", Description: "Hands-on coding", StartsAt: time.Now(), Status: model.EventPublished, CreatedAt: time.Now()},
		{ID: "2", Title: "Picnic", Description: "Outdoor GO games", StartsAt: time.Now(), Status: model.EventDraft, CreatedAt: time.Now()},
		{ID: "3", Title: "Board Meeting", Description: "Budget review", StartsAt: time.Now(), Status: model.EventDraft, CreatedAt: time.Now()},
	}
	for _, e := range seed {
		require.NoError(t, store.CreateEvent(context.Background(), e))
	}

	rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/events?q=go", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var filtered []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered, 2, "matches title and description case-insensitively")

	rec = doRequest(app, httptest.NewRequest(http.MethodGet, "/events", nil))
	var all []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 3, "empty query returns the full set")
}

func TestGetEventNotFound(t *testing.T) {
	app, _, _, _ := newTestApp()

	rec := doRequest(app, httptest.NewRequest(http.MethodGet, "/events/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEventReplacesRecord(t *testing.T) {
	app, store, _, publisher := newTestApp()

	original := model.Event{
		ID: "evt-1", Title: "Old Title", Description: "Old", Venue: "Hall A",
		StartsAt: time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
		Status:   model.EventDraft, CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateEvent(context.Background(), original))

	replacement := original
	replacement.Title = "New Title"
	replacement.Status = model.EventPublished
	payload, err := json.Marshal(replacement)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/events/evt-1", bytes.NewReader(payload))
	rec := doRequest(app, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := store.GetEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "New Title", stored.Title)
	assert.Equal(t, model.EventPublished, stored.Status)
	assert.Equal(t, []string{"admin.event.updated"}, publisher.Published())
}

func TestDeleteEvent(t *testing.T) {
	app, store, _, publisher := newTestApp()

	require.NoError(t, store.CreateEvent(context.Background(), model.Event{
		ID: "evt-1", Title: "Doomed", StartsAt: time.Now(), Status: model.EventDraft, CreatedAt: time.Now(),
	}))

	rec := doRequest(app, httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"admin.event.deleted"}, publisher.Published())

	rec = doRequest(app, httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEventRemovesStoredImage(t *testing.T) {
	app, store, objects, _ := newTestApp()

	url, err := app.Bridge.Upload(context.Background(), strings.NewReader("banner bytes"), "image/png", "event-banners")
	require.NoError(t, err)
	require.Equal(t, 1, objects.Len())

	require.NoError(t, store.CreateEvent(context.Background(), model.Event{
		ID: "evt-1", Title: "Pictured", StartsAt: time.Now(),
		Status: model.EventPublished, ImageURL: url, CreatedAt: time.Now(),
	}))

	rec := doRequest(app, httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, objects.Len(), "the orphaned image is deleted with the record")
}

func TestDeleteEventSurvivesImageCleanupFailure(t *testing.T) {
	app, store, _, publisher := newTestApp()

	// A reference the host does not serve cannot be cleaned up.
	require.NoError(t, store.CreateEvent(context.Background(), model.Event{
		ID: "evt-1", Title: "Foreign Image", StartsAt: time.Now(),
		Status: model.EventDraft, ImageURL: "https://elsewhere.example/banner.png", CreatedAt: time.Now(),
	}))

	rec := doRequest(app, httptest.NewRequest(http.MethodDelete, "/events/evt-1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code, "cleanup failure never fails the delete")

	_, err := store.GetEvent(context.Background(), "evt-1")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Equal(t, []string{"admin.event.deleted"}, publisher.Published())
}

// failingPublisher simulates a broker that rejects every publish.
type failingPublisher struct{ err error }

func (f *failingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return f.err
}

func TestCreateEventSurvivesPublishFailure(t *testing.T) {
	app, store, _, _ := newTestApp()
	app.Publisher = &failingPublisher{err: errors.New("broker unavailable")}

	body, contentType := multipartBody(t, map[string]string{
		"title":       "Resilient Meetup",
		"description": "Held even when the broker is down",
		"starts_at":   "2026-09-01T18:00:00Z",
	}, "", "", "", nil)

	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusCreated, rec.Code, "a lost notification never fails the request")

	var created model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	_, err := store.GetEvent(context.Background(), created.ID)
	assert.NoError(t, err, "the record is persisted despite the publish failure")
}

func TestCreateEventRejectsGiantBody(t *testing.T) {
	app, _, objects, _ := newTestApp()

	body, contentType := multipartBody(t, map[string]string{
		"title":     "Giant Banner",
		"starts_at": "2026-09-01T18:00:00Z",
	}, "image", "giant.png", "image/png", bytes.Repeat([]byte{0xff}, maxRequestBytes+1))

	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, "the body cap rejects the request during parsing")
	assert.Equal(t, 0, objects.Len())
}

func TestCreateSponsorWithLogo(t *testing.T) {
	app, store, _, publisher := newTestApp()

	body, contentType := multipartBody(t, map[string]string{
		"name":        "Acme Corp",
		"description": "Local hardware store",
		"website":     "https://acme.example",
	}, "logo", "logo.png", "image/png", []byte("logo bytes"))

	req := httptest.NewRequest(http.MethodPost, "/sponsors", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Sponsor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, model.TierCommunity, created.Tier, "tier defaults to community")
	assert.True(t, strings.HasPrefix(created.LogoURL, "https://cdn.example/media/sponsor-logos/"), "got %q", created.LogoURL)

	stored, err := store.GetSponsor(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.LogoURL, stored.LogoURL)
	assert.Equal(t, []string{"admin.sponsor.created"}, publisher.Published())
}

func TestSponsorLifecycle(t *testing.T) {
	app, store, _, _ := newTestApp()

	sponsor := model.Sponsor{
		ID: "spn-1", Name: "Acme Corp", Tier: model.TierGold, CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateSponsor(context.Background(), sponsor))

	sponsor.Tier = model.TierPlatinum
	payload, err := json.Marshal(sponsor)
	require.NoError(t, err)

	rec := doRequest(app, httptest.NewRequest(http.MethodPut, "/sponsors/spn-1", bytes.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(app, httptest.NewRequest(http.MethodGet, "/sponsors/spn-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stored model.Sponsor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, model.TierPlatinum, stored.Tier)

	rec = doRequest(app, httptest.NewRequest(http.MethodDelete, "/sponsors/spn-1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(app, httptest.NewRequest(http.MethodGet, "/sponsors/spn-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadEndpoint(t *testing.T) {
	app, _, objects, _ := newTestApp()

	body, contentType := multipartBody(t, nil, "file", "logo.png", "image/png", []byte("0123456789"))

	req := httptest.NewRequest(http.MethodPost, "/uploads/project-logos", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp["url"], "https://cdn.example/media/project-logos/"), "got %q", resp["url"])
	assert.Equal(t, 1, objects.Len())
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	app, _, objects, _ := newTestApp()

	body, contentType := multipartBody(t, nil, "file", "notes.txt", "text/plain", []byte("hello"))

	req := httptest.NewRequest(http.MethodPost, "/uploads/project-logos", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, objects.Len())
}

// failingHost simulates a media host that rejects every upload.
type failingHost struct{ err error }

func (f *failingHost) Store(ctx context.Context, payload []byte, contentType, category string) (string, error) {
	return "", f.err
}

func TestUploadSurfacesHostFailure(t *testing.T) {
	app, _, _, _ := newTestApp()
	app.Bridge = media.NewBridge(&failingHost{err: errors.New("host timeout")})

	body, contentType := multipartBody(t, nil, "file", "logo.png", "image/png", []byte("0123456789"))

	req := httptest.NewRequest(http.MethodPost, "/uploads/project-logos", body)
	req.Header.Set("Content-Type", contentType)
	rec := doRequest(app, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "https://", "no reference is produced on failure")
}

package db

import (
	"context"
	"sort"
	"sync"

	"atrium/model"
)

// MockDB is an in-memory Store for testing.
type MockDB struct {
	events   map[string]model.Event
	sponsors map[string]model.Sponsor
	mutex    sync.RWMutex
}

// NewMock creates a new in-memory store.
func NewMock() *MockDB {
	return &MockDB{
		events:   make(map[string]model.Event),
		sponsors: make(map[string]model.Sponsor),
	}
}

// ListEvents retrieves all events, newest first.
func (m *MockDB) ListEvents(ctx context.Context) ([]model.Event, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	events := make([]model.Event, 0, len(m.events))
	for _, event := range m.events {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})

	return events, nil
}

// GetEvent retrieves a single event by id.
func (m *MockDB) GetEvent(ctx context.Context, id string) (model.Event, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	event, ok := m.events[id]
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return event, nil
}

// CreateEvent inserts a new event.
func (m *MockDB) CreateEvent(ctx context.Context, event model.Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.events[event.ID] = event
	return nil
}

// UpdateEvent replaces an event whole.
func (m *MockDB) UpdateEvent(ctx context.Context, event model.Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.events[event.ID]; !ok {
		return ErrNotFound
	}
	m.events[event.ID] = event
	return nil
}

// DeleteEvent removes an event by id.
func (m *MockDB) DeleteEvent(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

// ListSponsors retrieves all sponsors, newest first.
func (m *MockDB) ListSponsors(ctx context.Context) ([]model.Sponsor, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sponsors := make([]model.Sponsor, 0, len(m.sponsors))
	for _, sponsor := range m.sponsors {
		sponsors = append(sponsors, sponsor)
	}
	sort.Slice(sponsors, func(i, j int) bool {
		return sponsors[i].CreatedAt.After(sponsors[j].CreatedAt)
	})

	return sponsors, nil
}

// GetSponsor retrieves a single sponsor by id.
func (m *MockDB) GetSponsor(ctx context.Context, id string) (model.Sponsor, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sponsor, ok := m.sponsors[id]
	if !ok {
		return model.Sponsor{}, ErrNotFound
	}
	return sponsor, nil
}

// CreateSponsor inserts a new sponsor.
func (m *MockDB) CreateSponsor(ctx context.Context, sponsor model.Sponsor) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sponsors[sponsor.ID] = sponsor
	return nil
}

// UpdateSponsor replaces a sponsor whole.
func (m *MockDB) UpdateSponsor(ctx context.Context, sponsor model.Sponsor) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.sponsors[sponsor.ID]; !ok {
		return ErrNotFound
	}
	m.sponsors[sponsor.ID] = sponsor
	return nil
}

// DeleteSponsor removes a sponsor by id.
func (m *MockDB) DeleteSponsor(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.sponsors[id]; !ok {
		return ErrNotFound
	}
	delete(m.sponsors, id)
	return nil
}

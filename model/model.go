package model

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// SponsorTier is the sponsorship level of a sponsor.
type SponsorTier string

const (
	TierPlatinum  SponsorTier = "platinum"
	TierGold      SponsorTier = "gold"
	TierSilver    SponsorTier = "silver"
	TierCommunity SponsorTier = "community"
)

// Event represents a community event managed by staff.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Venue       string      `json:"venue"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	Status      EventStatus `json:"status"`
	ImageURL    string      `json:"image_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Sponsor represents an organization sponsoring the community.
type Sponsor struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Tier         SponsorTier `json:"tier"`
	Website      string      `json:"website,omitempty"`
	ContactEmail string      `json:"contact_email,omitempty"`
	LogoURL      string      `json:"logo_url,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// FieldErrors maps a field name to a validation message.
type FieldErrors map[string]string

// Validate checks the required fields and enumerated choices of an event.
// It returns nil when the record is acceptable.
func (e *Event) Validate() FieldErrors {
	errs := FieldErrors{}
	if e.Title == "" {
		errs["title"] = "title is required"
	}
	if e.Description == "" {
		errs["description"] = "description is required"
	}
	if e.StartsAt.IsZero() {
		errs["starts_at"] = "starts_at is required"
	}
	if !e.EndsAt.IsZero() && e.EndsAt.Before(e.StartsAt) {
		errs["ends_at"] = "ends_at must not be before starts_at"
	}
	switch e.Status {
	case EventDraft, EventPublished, EventCancelled:
	default:
		errs["status"] = "status must be one of: draft, published, cancelled"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the required fields and enumerated choices of a sponsor.
// It returns nil when the record is acceptable.
func (s *Sponsor) Validate() FieldErrors {
	errs := FieldErrors{}
	if s.Name == "" {
		errs["name"] = "name is required"
	}
	switch s.Tier {
	case TierPlatinum, TierGold, TierSilver, TierCommunity:
	default:
		errs["tier"] = "tier must be one of: platinum, gold, silver, community"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

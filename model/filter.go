package model

import "strings"

// FilterEvents returns the events whose title or description contains
// the query, case-insensitively. An empty query returns the input
// unchanged.
func FilterEvents(events []Event, query string) []Event {
	if query == "" {
		return events
	}
	q := strings.ToLower(query)
	filtered := make([]Event, 0, len(events))
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(e.Description), q) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// FilterSponsors returns the sponsors whose name or description contains
// the query, case-insensitively. An empty query returns the input
// unchanged.
func FilterSponsors(sponsors []Sponsor, query string) []Sponsor {
	if query == "" {
		return sponsors
	}
	q := strings.ToLower(query)
	filtered := make([]Sponsor, 0, len(sponsors))
	for _, s := range sponsors {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.Description), q) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Package realtime delivers comment-table change notifications to mounted widgets.
package realtime

import (
	"kejinlab/internal/models"
)

// EventType mirrors the row-store's change kinds.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one push notification: {eventType, new?, old?}.
// A delete payload may carry only the old row's id, in which case the page is unknown.
type ChangeEvent struct {
	Type EventType       `json:"eventType"`
	New  *models.Comment `json:"new,omitempty"`
	Old  *models.Comment `json:"old,omitempty"`
}

// PageID returns the partition the event belongs to, or "" when the payload lacks it.
func (e ChangeEvent) PageID() string {
	if e.New != nil && e.New.PageID != "" {
		return e.New.PageID
	}
	if e.Old != nil && e.Old.PageID != "" {
		return e.Old.PageID
	}
	return ""
}

// BelongsTo reports whether a widget showing pageID must react to the event.
// Events of unknown affiliation are treated as relevant.
func (e ChangeEvent) BelongsTo(pageID string) bool {
	p := e.PageID()
	return p == "" || p == pageID
}

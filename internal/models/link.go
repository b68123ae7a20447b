package models

import (
	"time"
)

type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "active"
	LinkStatusInactive LinkStatus = "inactive"
)

type Link struct {
	ID             int64      `json:"_id"`
	UserID         int64      `json:"user"`
	OriginalURL    string     `json:"originalLink"`
	ShortCode      string     `json:"shortLink"`
	Remarks        string     `json:"remarks"`
	Status         LinkStatus `json:"status"`
	Clicks         int64      `json:"clicks"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// StatusFor derives the status a link gets when its expiration is written.
// It is only consulted on create and update, never on read.
func StatusFor(expiration *time.Time, now time.Time) LinkStatus {
	if expiration != nil && expiration.Before(now) {
		return LinkStatusInactive
	}
	return LinkStatusActive
}

// ResolvedLink is the slice of a link needed to serve a redirect; it is what
// the cache stores.
type ResolvedLink struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	Status      LinkStatus `json:"status"`
}

type CreateLinkInput struct {
	OriginalURL    string
	Remarks        string
	ExpirationDate *time.Time
}

// UpdateLinkInput carries a partial update. Nil fields are left untouched.
type UpdateLinkInput struct {
	OriginalURL    *string
	Remarks        *string
	ExpirationDate *time.Time
	Status         *LinkStatus
}

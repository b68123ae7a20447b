package models

import (
	"time"
)

type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceTablet  DeviceType = "tablet"
	DeviceUnknown DeviceType = "unknown"
)

// AnalyticsEvent is one immutable record of a redirect or track hit.
type AnalyticsEvent struct {
	ID         int64      `json:"_id"`
	LinkID     int64      `json:"link"`
	IPAddress  string     `json:"ipAddress"`
	DeviceType DeviceType `json:"deviceType"`
	UserAgent  string     `json:"userAgent"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// HitMeta is the request metadata captured for a hit.
type HitMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceType DeviceType
}

// EventWithLink is an event joined with the identity of its link.
type EventWithLink struct {
	ID          int64      `json:"_id"`
	IPAddress   string     `json:"ipAddress"`
	DeviceType  DeviceType `json:"deviceType"`
	UserAgent   string     `json:"userAgent"`
	CreatedAt   time.Time  `json:"createdAt"`
	ShortCode   string     `json:"shortLink"`
	OriginalURL string     `json:"originalLink"`
}

type DailyClicks struct {
	Date            string `json:"_id"`
	DailyClicks     int64  `json:"dailyClicks"`
	CumulativeTotal int64  `json:"cumulativeTotal"`
}

type DeviceClicks struct {
	DeviceType  DeviceType `json:"deviceType"`
	TotalClicks int64      `json:"totalClicks"`
}

package service

import "time"

var AnalyticsEventsTotal = analyticsEventsTotal

// WithoutBackoff disables the delay between analytics insert retries.
func WithoutBackoff(s AnalyticsService) AnalyticsService {
	if as, ok := s.(*analyticsService); ok {
		as.backoff = time.Nanosecond
	}
	return s
}

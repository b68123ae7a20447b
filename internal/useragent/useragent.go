// Package useragent turns a raw User-Agent header into the two coarse labels
// stored with every analytics event: a client signature and a device class.
package useragent

import (
	"strings"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/mssola/useragent"
)

const Unknown = "unknown"

// signature is one entry of the ordered classification table. A header
// matches when it contains any of the tokens and none of the excluded ones.
type signature struct {
	label   string
	tokens  []string
	exclude []string
}

// First match wins. Chrome precedes Safari because Chrome headers also carry
// a Safari token.
var signatures = []signature{
	{label: "Android", tokens: []string{"android"}},
	{label: "iOS", tokens: []string{"iphone", "ipad", "ipod"}},
	{label: "Chrome", tokens: []string{"chrome"}},
	{label: "Safari", tokens: []string{"safari"}, exclude: []string{"chrome"}},
	{label: "Firefox", tokens: []string{"firefox"}},
	{label: "Edge", tokens: []string{"edge"}},
	{label: "Internet Explorer", tokens: []string{"msie", "trident"}},
}

var botTokens = []string{"bot", "crawler", "spider"}

// Classify maps a header onto a client signature. Headers matching no
// signature are returned unchanged; an empty header becomes "unknown".
func Classify(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return Unknown
	}
	lower := strings.ToLower(raw)
	for _, sig := range signatures {
		if containsAny(lower, sig.tokens) && !containsAny(lower, sig.exclude) {
			return sig.label
		}
	}
	return raw
}

// DetectDevice reports the device class of a header. It is independent of
// Classify: an Android tablet is "Android" there and "tablet" here.
func DetectDevice(raw string) models.DeviceType {
	if strings.TrimSpace(raw) == "" {
		return models.DeviceUnknown
	}

	ua := useragent.New(raw)
	lower := strings.ToLower(raw)
	if ua.Bot() || containsAny(lower, botTokens) {
		return models.DeviceUnknown
	}

	switch {
	case ua.Platform() == "iPad" || strings.Contains(lower, "ipad"):
		return models.DeviceTablet
	case strings.Contains(lower, "tablet"):
		return models.DeviceTablet
	case strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return models.DeviceTablet
	case ua.Mobile() || strings.Contains(lower, "mobi"):
		return models.DeviceMobile
	}
	return models.DeviceDesktop
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

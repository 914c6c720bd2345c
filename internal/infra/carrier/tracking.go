package carrier

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/arklim/book-buyback/internal/core/domain"
)

var trackingTemplates = map[domain.Carrier]string{
	domain.CarrierUSPS:  "https://tools.usps.com/go/TrackConfirmAction?tLabels=%s",
	domain.CarrierUPS:   "https://www.ups.com/track?tracknum=%s",
	domain.CarrierFedEx: "https://www.fedex.com/fedextrack/?trknbr=%s",
	domain.CarrierDHL:   "https://www.dhl.com/en/express/tracking.html?AWB=%s",
}

// TrackingURLs builds public tracking links from per-carrier templates.
type TrackingURLs struct {
	templates map[domain.Carrier]string
}

// NewTrackingURLs returns a builder using the public carrier sites. Entries in
// overrides replace the default template for that carrier.
func NewTrackingURLs(overrides map[domain.Carrier]string) *TrackingURLs {
	templates := make(map[domain.Carrier]string, len(trackingTemplates))
	for c, tmpl := range trackingTemplates {
		templates[c] = tmpl
	}
	for c, tmpl := range overrides {
		if strings.TrimSpace(tmpl) != "" {
			templates[c] = tmpl
		}
	}
	return &TrackingURLs{templates: templates}
}

// TrackingURL formats the link for trackingNumber on carrier.
func (t *TrackingURLs) TrackingURL(c domain.Carrier, trackingNumber string) (string, error) {
	tmpl, ok := t.templates[c]
	if !ok {
		return "", domain.NewValidationError("carrier", "Unsupported carrier: "+string(c))
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return "", domain.NewValidationError("tracking_number", "Tracking number cannot be empty")
	}
	return fmt.Sprintf(tmpl, url.QueryEscape(trackingNumber)), nil
}

var _ domain.TrackingURLBuilder = (*TrackingURLs)(nil)

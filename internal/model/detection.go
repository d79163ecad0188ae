package model

// Kind identifies the type of a detection record.
// Values other than the predefined constants are carried verbatim.
type Kind string

const (
	// KindCookie is a suspicious cookie (typically a third-party affiliate cookie).
	KindCookie Kind = "cookie"

	// KindRequest is a suspicious network request fired by the page.
	KindRequest Kind = "request"

	// KindIframe is a hidden iframe found in the rendered DOM.
	KindIframe Kind = "iframe"
)

// String returns the raw kind value.
func (k Kind) String() string {
	return string(k)
}

// DetectionRecord is one observed suspicious signal attributed to a scanned URL.
// Records are created by a detection provider and treated as read-only values
// afterwards.
type DetectionRecord struct {
	// Kind is the detection type (cookie, request, iframe or any other string).
	Kind Kind `json:"type"`

	// URL is the scanned URL this detection pertains to.
	URL string `json:"url"`

	// Detail is the raw evidence: request URL, cookie pair or iframe source.
	Detail string `json:"detail"`

	// Origin is where the signal came from (document, cookie domain).
	Origin string `json:"origin"`

	// Referer is the referring page of the signal, or "direct".
	Referer string `json:"referer"`
}

// CSVHeader is the fixed column schema of persisted detection reports.
var CSVHeader = []string{"type", "url", "detail", "origin", "referer"}

// CSVRecord returns the record as a row matching CSVHeader.
func (d DetectionRecord) CSVRecord() []string {
	return []string{string(d.Kind), d.URL, d.Detail, d.Origin, d.Referer}
}

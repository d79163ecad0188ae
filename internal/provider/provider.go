package provider

import (
	"context"
	"errors"

	"github.com/nao1215/attrguard/internal/model"
)

// ErrBrowserUnavailable is returned when the live provider cannot find or
// start a browser.
var ErrBrowserUnavailable = errors.New("headless browser is not available")

// Provider is a detection backend.
//
// Scan receives de-duplicated URLs and returns every detection it observed.
// It only returns after all URLs have been attempted. A non-nil error means
// the batch as a whole could not be scanned; a single unreachable URL is not
// an error.
type Provider interface {
	Kind() model.ProviderKind
	Scan(ctx context.Context, urls []string) ([]model.DetectionRecord, error)
}

// flatten concatenates per-URL results in index order.
func flatten(perURL [][]model.DetectionRecord) []model.DetectionRecord {
	n := 0
	for _, recs := range perURL {
		n += len(recs)
	}
	out := make([]model.DetectionRecord, 0, n)
	for _, recs := range perURL {
		out = append(out, recs...)
	}
	return out
}

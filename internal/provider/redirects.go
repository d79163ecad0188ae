package provider

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/attrguard/internal/model"
)

// RedirectReferer marks request detections found in page markup rather than
// on the wire.
const RedirectReferer = "redirect"

var (
	metaRefreshPattern = regexp.MustCompile(`(?i)<meta[^>]*http-equiv\s*=\s*["']?refresh["']?[^>]*content\s*=\s*["']?\d+\s*;\s*url\s*=\s*["']?([^"'>\s]+)`)

	scriptRedirectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`window\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?:^|[^.\w])location\.href\s*=\s*["']([^"']+)["']`),
		regexp.MustCompile(`location\.(?:replace|assign)\s*\(\s*["']([^"']+)["']\s*\)`),
	}
)

// DetectRedirects reports meta-refresh and script redirects in the page
// markup that send the visitor to a third-party URL carrying affiliate
// markers. Such redirects set attribution cookies for a click that never
// happened.
func DetectRedirects(pageURL, markup string) []model.DetectionRecord {
	base, err := url.Parse(pageURL)
	if err != nil {
		return []model.DetectionRecord{}
	}
	site := registrableDomain(base.Hostname())

	var targets []string
	for _, m := range metaRefreshPattern.FindAllStringSubmatch(markup, -1) {
		targets = append(targets, m[1])
	}
	for _, p := range scriptRedirectPatterns {
		for _, m := range p.FindAllStringSubmatch(markup, -1) {
			targets = append(targets, m[1])
		}
	}

	out := make([]model.DetectionRecord, 0)
	seen := make(map[string]struct{})
	for _, t := range targets {
		target := resolve(base, t)
		host := hostOf(target)
		if host == "" || registrableDomain(host) == site {
			continue
		}
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			continue
		}
		if !containsAny(strings.ToLower(target), requestMarkers) {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, model.DetectionRecord{
			Kind:    model.KindRequest,
			URL:     pageURL,
			Detail:  target,
			Origin:  pageURL,
			Referer: RedirectReferer,
		})
	}
	return out
}

// appendUnique appends the records of extra whose kind and detail are not
// already present in recs.
func appendUnique(recs, extra []model.DetectionRecord) []model.DetectionRecord {
	type key struct {
		kind   model.Kind
		detail string
	}
	have := make(map[key]struct{}, len(recs))
	for _, r := range recs {
		have[key{r.Kind, r.Detail}] = struct{}{}
	}
	for _, r := range extra {
		k := key{r.Kind, r.Detail}
		if _, ok := have[k]; ok {
			continue
		}
		have[k] = struct{}{}
		recs = append(recs, r)
	}
	return recs
}

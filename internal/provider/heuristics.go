package provider

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/attrguard/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

// requestMarkers identify affiliate or tracking endpoints in request URLs.
var requestMarkers = []string{"aff", "affiliate", "click", "track", "partner", "ref=", "redirect"}

// cookieMarkers identify affiliate attribution cookies by name.
var cookieMarkers = []string{"aff", "partner", "ref", "track", "click", "campaign", "subid"}

// ObservedRequest is a network request captured while loading a page.
type ObservedRequest struct {
	// URL is the requested resource.
	URL string

	// DocumentURL is the document that issued the request.
	DocumentURL string

	// Referer is the Referer request header, if any.
	Referer string
}

// ObservedCookie is a cookie present in the browser after loading a page.
type ObservedCookie struct {
	Name   string
	Value  string
	Domain string
}

// DetectRequests reports third-party requests that look like affiliate or tracking hits.
func DetectRequests(pageURL string, reqs []ObservedRequest) []model.DetectionRecord {
	site := registrableDomain(hostOf(pageURL))
	out := make([]model.DetectionRecord, 0)
	seen := make(map[string]struct{})

	for _, r := range reqs {
		host := hostOf(r.URL)
		if host == "" || registrableDomain(host) == site {
			continue
		}
		if !containsAny(strings.ToLower(r.URL), requestMarkers) {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}

		origin := r.DocumentURL
		if origin == "" {
			origin = pageURL
		}
		referer := r.Referer
		if referer == "" {
			referer = "direct"
		}
		out = append(out, model.DetectionRecord{
			Kind:    model.KindRequest,
			URL:     pageURL,
			Detail:  r.URL,
			Origin:  origin,
			Referer: referer,
		})
	}
	return out
}

// DetectCookies reports third-party cookies whose names look like affiliate attribution.
func DetectCookies(pageURL string, cookies []ObservedCookie) []model.DetectionRecord {
	site := registrableDomain(hostOf(pageURL))
	out := make([]model.DetectionRecord, 0)

	for _, c := range cookies {
		domain := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		if domain == "" || registrableDomain(domain) == site {
			continue
		}
		if !containsAny(strings.ToLower(c.Name), cookieMarkers) {
			continue
		}
		out = append(out, model.DetectionRecord{
			Kind:    model.KindCookie,
			URL:     pageURL,
			Detail:  c.Name + "=" + c.Value,
			Origin:  c.Domain,
			Referer: pageURL,
		})
	}
	return out
}

// DetectHiddenIframes parses rendered HTML and reports iframes that are
// invisible to the user: tiny dimensions, display:none, visibility:hidden or
// the hidden attribute.
func DetectHiddenIframes(pageURL string, r io.Reader) ([]model.DetectionRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(pageURL) //nolint:errcheck // nil base leaves src unchanged
	out := make([]model.DetectionRecord, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "iframe" && isHidden(n) {
			if src := resolve(base, getAttr(n, "src")); src != "" {
				out = append(out, model.DetectionRecord{
					Kind:    model.KindIframe,
					URL:     pageURL,
					Detail:  src,
					Origin:  pageURL,
					Referer: pageURL,
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out, nil
}

func isHidden(n *html.Node) bool {
	if hasAttr(n, "hidden") {
		return true
	}
	if tinyDimension(getAttr(n, "width")) || tinyDimension(getAttr(n, "height")) {
		return true
	}

	style := strings.ToLower(strings.ReplaceAll(getAttr(n, "style"), " ", ""))
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		value = strings.TrimSuffix(value, "!important")
		switch prop {
		case "display":
			if value == "none" {
				return true
			}
		case "visibility":
			if value == "hidden" {
				return true
			}
		case "width", "height":
			if tinyDimension(value) {
				return true
			}
		}
	}
	return false
}

// tinyDimension reports whether a width/height value is at most one pixel.
func tinyDimension(v string) bool {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	return f <= 1
}

// getAttr returns the value of an attribute from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// registrableDomain returns the eTLD+1 of host, or host itself when it has none
// (IP addresses, localhost).
func registrableDomain(host string) string {
	if host == "" {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

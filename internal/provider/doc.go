// Package provider implements the detection backends used by attrguard.
//
// A Provider takes a set of URLs and returns raw detection records.
// Two implementations exist:
//   - Live: drives a headless Chrome/Chromium through chromedp and inspects
//     network requests, cookies and the rendered DOM
//   - Simulated: derives synthetic detections from keywords in the URL
//
// Probe checks once whether a browser is installed. Select turns the probe
// result and the configured mode into a Selection, downgrading to the
// simulated backend when the live one is unavailable.
package provider

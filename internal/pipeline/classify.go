package pipeline

import "github.com/nao1215/attrguard/internal/model"

// Threat descriptions emitted per detection kind.
const (
	ThreatCookie  = "Suspicious Cookie Detected"
	ThreatRequest = "Suspicious Network Request"
	ThreatIframe  = "Hidden Malicious Iframe"
)

// Classify maps the detections of one URL to a risk level and one threat
// description per detection, in input order.
//
// Rules, first match wins:
//   - no detections: clean
//   - any cookie, or three or more detections: high
//   - any iframe, or two detections: medium
//   - otherwise: low
func Classify(detections []model.DetectionRecord) (model.RiskLevel, []string) {
	threats := make([]string, 0, len(detections))
	if len(detections) == 0 {
		return model.RiskClean, threats
	}

	hasCookie, hasIframe := false, false
	for _, d := range detections {
		switch d.Kind {
		case model.KindCookie:
			hasCookie = true
		case model.KindIframe:
			hasIframe = true
		}
		threats = append(threats, describe(d.Kind))
	}

	switch {
	case hasCookie || len(detections) >= 3:
		return model.RiskHigh, threats
	case hasIframe || len(detections) >= 2:
		return model.RiskMedium, threats
	default:
		return model.RiskLow, threats
	}
}

func describe(kind model.Kind) string {
	switch kind {
	case model.KindCookie:
		return ThreatCookie
	case model.KindRequest:
		return ThreatRequest
	case model.KindIframe:
		return ThreatIframe
	default:
		return "Security Threat: " + string(kind)
	}
}

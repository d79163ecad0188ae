package pipeline

import "github.com/nao1215/attrguard/internal/model"

// GroupByURL partitions detections by the URL they pertain to.
// Order within each group follows the input order. Every record lands in
// exactly one group, including records whose URL is not part of the batch.
func GroupByURL(detections []model.DetectionRecord) map[string][]model.DetectionRecord {
	groups := make(map[string][]model.DetectionRecord)
	for _, d := range detections {
		groups[d.URL] = append(groups[d.URL], d)
	}
	return groups
}

// Package pipeline turns a list of URLs into a classified batch report.
//
// The stages are:
//   - GroupByURL: partition raw detections by the URL they pertain to
//   - Classify: map one URL's detections to a risk level and threat list
//   - Assembler: build one result row per input URL and persist the raw
//     detection stream through a report.Sink
//   - Orchestrator: validate input, call the provider and drive the stages
//     through a fixed state machine, always producing exactly one Outcome
package pipeline

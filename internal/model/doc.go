// Package model defines the core data structures used throughout attrguard.
//
// This package contains the following main types:
//   - DetectionRecord: One suspicious signal observed for a scanned URL
//   - URLResult: The classified result row for a single input URL
//   - BatchReport: The aggregate result of one batch invocation
//   - ScanError: The terminal error of a failed batch
//   - Outcome: Exactly one of BatchReport or ScanError
//
// The models are serializable to JSON for CLI output, the HTTP API and
// history storage. Field names follow the JSON contract of the batch
// adapter (type, risk_level, raw_detections, total_threats, ...).
package model

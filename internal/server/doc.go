// Package server exposes batch scans over HTTP.
//
// A POST to /api/scan starts a batch in the background and returns a scan
// id; clients poll /api/scan/:id for the job state and download the CSV
// artifact from /api/scan/:id/csv. Jobs live in memory and are evicted
// after JobTTL.
package server

package model

import (
	"encoding/json"
	"errors"
)

// Outcome is the result of one batch: exactly one of Report or Err is set.
type Outcome struct {
	Report *BatchReport
	Err    *ScanError
}

// Succeeded returns an Outcome carrying a report.
func Succeeded(report *BatchReport) Outcome {
	return Outcome{Report: report}
}

// Failed returns an Outcome carrying an error.
func Failed(err *ScanError) Outcome {
	return Outcome{Err: err}
}

// OK reports whether the outcome carries a report.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Report != nil
}

// ErrEmptyOutcome is returned when an Outcome has neither a report nor an error.
var ErrEmptyOutcome = errors.New("outcome has neither report nor error")

type successEnvelope struct {
	Success bool `json:"success"`
	*BatchReport
}

type failureEnvelope struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Results []URLResult `json:"results"`
}

// MarshalJSON renders the envelope consumed by callers of the batch adapter:
// {"success":true, ...report} or {"success":false,"error":"...","results":[]}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(failureEnvelope{
			Success: false,
			Error:   o.Err.Message,
			Results: []URLResult{},
		})
	}
	if o.Report == nil {
		return nil, ErrEmptyOutcome
	}
	report := *o.Report
	if report.Results == nil {
		report.Results = []URLResult{}
	}
	return json.Marshal(successEnvelope{Success: true, BatchReport: &report})
}

// UnmarshalJSON decodes either envelope form.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var probe struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if !probe.Success {
		o.Report = nil
		o.Err = &ScanError{Message: probe.Error}
		return nil
	}
	var report BatchReport
	if err := json.Unmarshal(data, &report); err != nil {
		return err
	}
	o.Report = &report
	o.Err = nil
	return nil
}

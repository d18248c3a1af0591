package telemetry

import (
	"strings"
	"sync"
)

type ReportKind int

const (
	REPORT_BROKEN ReportKind = iota
	REPORT_WARNING
	REPORT_DEBUG
	REPORT_COUNT
)

type Report struct {
	Kind   ReportKind
	Id     string
	Params []any
	Count  int64
}

// Recorder is an API that keeps every report in memory so tests can
// assert on what a component reported. It optionally forwards to another API.
type Recorder struct {
	Forward API

	mutex   sync.Mutex
	reports []Report
}

func (r *Recorder) record(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record(Report{Kind: REPORT_BROKEN, Id: id, Params: params})
	if r.Forward != nil {
		r.Forward.ReportBroken(id, params...)
	}
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record(Report{Kind: REPORT_WARNING, Id: id, Params: params})
	if r.Forward != nil {
		r.Forward.ReportWarning(id, params...)
	}
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record(Report{Kind: REPORT_DEBUG, Id: msg, Params: params})
	if r.Forward != nil {
		r.Forward.ReportDebug(msg, params...)
	}
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record(Report{Kind: REPORT_COUNT, Id: id, Count: count})
	if r.Forward != nil {
		r.Forward.ReportCount(id, count)
	}
}

// Reports returns a copy of the recorded reports.
func (r *Recorder) Reports() []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of the given kind whose id ends with suffix, the
// suffix match lets callers ignore the namespaces added by ScopedAPI.
func (r *Recorder) Find(kind ReportKind, suffix string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Kind == kind && strings.HasSuffix(report.Id, suffix) {
			out = append(out, report)
		}
	}
	return out
}

package ingest

import (
	"fmt"
	"time"
)

// RunReport collects the summaries of sites loaded together.
type RunReport struct {
	Id         string
	StartedAt  time.Time
	FinishedAt time.Time
	Summaries  []Summary
}

func (r RunReport) Totals() Summary {
	var total Summary
	total.Site = "total"
	total.StartedAt = r.StartedAt
	total.Duration = r.FinishedAt.Sub(r.StartedAt)
	for _, s := range r.Summaries {
		total.Persisted += s.Persisted
		total.Dropped += s.Dropped
		total.Failed += s.Failed
		total.SkippedElements += s.SkippedElements
		total.SkippedPages += s.SkippedPages
		total.Retries += s.Retries
		total.Error = total.Error || s.Error
		total.Stopped = total.Stopped || s.Stopped
	}
	return total
}

// Failed is true when any site gave up.
func (r RunReport) Failed() bool {
	for _, s := range r.Summaries {
		if s.Error {
			return true
		}
	}
	return false
}

func (s Summary) String() string {
	status := "done"
	switch {
	case s.Error:
		status = "error"
	case s.Stopped:
		status = "stopped"
	}
	return fmt.Sprintf(
		"%s: %s, %d persisted, %d dropped, %d failed, %d elements and %d pages skipped in %s",
		s.Site, status, s.Persisted, s.Dropped, s.Failed, s.SkippedElements, s.SkippedPages,
		s.Duration.Round(time.Second),
	)
}

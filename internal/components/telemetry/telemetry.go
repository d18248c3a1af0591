package telemetry

import (
	"fmt"
)

// API is the reporting surface every component writes to. Production code
// logs through SlogAPI, tests assert on what was reported through Recorder.
type API interface {
	// ReportBroken reports a component failure that needs fixing, like a
	// site changing its markup or the store rejecting writes.
	//
	// The id names the component and operation, not the cause: a recipe
	// page that cannot be parsed is `visitor.extract`, with the page url and
	// error passed as params. Ids are lowercase and dot separated, the
	// package prefix comes from ScopedAPI.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something expected but worth a look, like a
	// dropped recipe or a skipped page. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports progress that is only interesting while debugging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the value of a counter at this point of the run,
	// such as recipes persisted so far. Values are samples, not deltas.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id reported through it with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}

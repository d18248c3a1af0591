package scraping

import "context"

type State int

const (
	STATE_INIT State = iota
	STATE_WORK
	STATE_ERROR
)

func (s State) String() string {
	switch s {
	case STATE_INIT:
		return "INIT"
	case STATE_WORK:
		return "WORK"
	case STATE_ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ErrorCode tags the cause of the last transition into STATE_ERROR, the
// loader uses it to pick an escalation strategy.
type ErrorCode int

const (
	ERROR_NONE ErrorCode = iota
	ERROR_INIT_FAILED
	ERROR_SCRAPE_FAILED
	ERROR_PAGE_LOAD_FAILED
)

func (c ErrorCode) String() string {
	switch c {
	case ERROR_NONE:
		return "NONE"
	case ERROR_INIT_FAILED:
		return "INIT_FAILED"
	case ERROR_SCRAPE_FAILED:
		return "SCRAPE_FAILED"
	case ERROR_PAGE_LOAD_FAILED:
		return "PAGE_LOAD_FAILED"
	}
	return "UNKNOWN"
}

// Cursor is a snapshot of a visitor's traversal position.
type Cursor struct {
	Page     int
	Index    int
	Buffered int
}

// Visitor is a stateful traversal over one source site.
//
//	INIT --(first page fetched)--> WORK
//	WORK --(fetch or extraction failure)--> ERROR
//	ERROR --(Recover)--> WORK
//
// Exhaustion is not a state, it is reported by HasMore.
type Visitor interface {
	Name() string

	// Connect fetches the first page. On failure the visitor is left in
	// STATE_ERROR with ERROR_INIT_FAILED.
	Connect(ctx context.Context) error
	// IsConnected is true once a page has been fetched successfully.
	IsConnected() bool

	// Next returns the next recipe. It returns false when the visitor is
	// exhausted or not in STATE_WORK.
	Next(ctx context.Context) (ScrapedRecipe, bool)
	// HasMore is false once a page fetch yielded no elements, and always
	// false outside of STATE_WORK.
	HasMore() bool

	// Recover puts the visitor back into STATE_WORK without moving any
	// cursor, the failed position is retried by the next call to Next.
	Recover()
	// SkipCurrentElement abandons the element under the cursor.
	SkipCurrentElement()
	// SkipCurrentPage abandons the page under the cursor.
	SkipCurrentPage()

	State() State
	ErrorCode() ErrorCode
	Cursor() Cursor
}

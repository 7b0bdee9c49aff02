// Package batch holds per-item outcomes of bulk content operations.
package batch

import "github.com/kailas-cloud/modalsearch/internal/domain/content"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one content item in a batch.
type Result struct {
	id     string
	typ    content.Type
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string, t content.Type) Result {
	return Result{id: id, typ: t, status: StatusOK}
}

// NewError creates a failed batch result.
func NewError(id string, t content.Type, err error) Result {
	return Result{id: id, typ: t, status: StatusError, err: err}
}

// ID returns the content identifier.
func (r Result) ID() string { return r.id }

// Type returns the content modality, empty for id-only operations.
func (r Result) Type() content.Type { return r.typ }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts outcomes over a batch.
type Summary struct {
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	ByType    map[content.Type]int `json:"by_type,omitempty"`
}

// Summarize counts successes per modality and failures overall.
func Summarize(rs []Result) Summary {
	s := Summary{ByType: make(map[content.Type]int)}
	for _, r := range rs {
		if r.status != StatusOK {
			s.Failed++
			continue
		}
		s.Succeeded++
		if r.typ != "" {
			s.ByType[r.typ]++
		}
	}
	return s
}

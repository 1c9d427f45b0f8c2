// Package session holds the per-user multi-step form state. One user has at
// most one in-flight form: the store is keyed by telegram id, so starting a
// new flow overwrites (and Clear discards) whatever was pending.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession is returned when the user has no in-flight form.
var ErrNoSession = errors.New("no active form session")

// DefaultTTL bounds how long an abandoned form survives before the backend
// drops it.
const DefaultTTL = 30 * time.Minute

// Form is the accumulator for one user's in-progress flow: which flow,
// which step is awaited next, and the fields captured so far.
type Form struct {
	Flow      string            `json:"flow"`
	Step      int               `json:"step"`
	Fields    map[string]string `json:"fields"`
	StartedAt time.Time         `json:"started_at"`
}

// Set records a captured field value.
func (f *Form) Set(name, value string) {
	if f.Fields == nil {
		f.Fields = make(map[string]string)
	}
	f.Fields[name] = value
}

// Store persists form accumulators keyed by telegram id. Implementations must
// keep different users fully independent.
type Store interface {
	Get(ctx context.Context, telegramID int64) (*Form, error)
	Put(ctx context.Context, telegramID int64, form *Form) error
	Clear(ctx context.Context, telegramID int64) error
}

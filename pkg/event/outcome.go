package event

import "fmt"

// Status classifies the result of applying a single event.
type Status string

const (
	// StatusApplied means the mutation was committed.
	StatusApplied Status = "applied"
	// StatusRejected means the event structurally conflicts with the
	// current state (duplicate id, missing required reference) and will
	// never succeed as submitted. The batch continues.
	StatusRejected Status = "rejected"
	// StatusDeferred means the event could not currently be satisfied
	// (unknown stat, unrecognized type, explicit retcon). The caller may
	// resubmit on a later turn; this engine never retries on its own.
	StatusDeferred Status = "deferred"
)

// Outcome is the per-event application result. Outcomes are 1:1 and
// order-preserving with the submitted event sequence.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func Applied() Outcome {
	return Outcome{Status: StatusApplied}
}

func Rejectedf(format string, args ...any) Outcome {
	return Outcome{Status: StatusRejected, Reason: fmt.Sprintf(format, args...)}
}

func Deferredf(format string, args ...any) Outcome {
	return Outcome{Status: StatusDeferred, Reason: fmt.Sprintf(format, args...)}
}

// Report pairs each event with its outcome for audit and display.
type Report struct {
	Applications []Application `json:"applications"`
}

// Application is one event alongside its apply outcome.
type Application struct {
	Event   Event   `json:"event"`
	Outcome Outcome `json:"outcome"`
}

// Outcomes returns just the outcome sequence, aligned with the input
// event order.
func (r *Report) Outcomes() []Outcome {
	out := make([]Outcome, len(r.Applications))
	for i, a := range r.Applications {
		out[i] = a.Outcome
	}
	return out
}

// Counts tallies the report by status.
func (r *Report) Counts() (applied, rejected, deferred int) {
	for _, a := range r.Applications {
		switch a.Outcome.Status {
		case StatusApplied:
			applied++
		case StatusRejected:
			rejected++
		case StatusDeferred:
			deferred++
		}
	}
	return applied, rejected, deferred
}

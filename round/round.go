// Package round defines the entities of one federated aggregation round: a
// fixed quorum of participants, one update vector per participant, and the
// aggregate produced when the quorum is met.
package round

import "time"

type State uint8

const (
	Collecting State = iota
	Aggregating
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "Collecting"
	case Aggregating:
		return "Aggregating"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Round is one aggregation round. Dim is fixed by the first accepted update;
// Weights, when the aggregator exposes them, align index-wise with Updates.
type Round struct {
	ID          string        `json:"id" cbor:"id"`
	Name        string        `json:"name,omitempty" cbor:"name,omitempty"`
	Quorum      int           `json:"quorum" cbor:"quorum"`
	Dim         int           `json:"dim,omitempty" cbor:"dim,omitempty"`
	State       State         `json:"state" cbor:"state"`
	Updates     []Update      `json:"updates,omitempty" cbor:"updates,omitempty"`
	Aggregate   []float64     `json:"aggregate,omitempty" cbor:"aggregate,omitempty"`
	Weights     []float64     `json:"weights,omitempty" cbor:"weights,omitempty"`
	Error       string        `json:"error,omitempty" cbor:"error,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" cbor:"timeout,omitempty"`
	StartedAt   time.Time     `json:"started_at" cbor:"started_at"`
	CompletedAt time.Time     `json:"completed_at" cbor:"completed_at"`
	UpdatedAt   time.Time     `json:"updated_at" cbor:"updated_at"`
}

// Update is one participant's contribution to a round.
type Update struct {
	RoundID    string         `json:"round_id" cbor:"round_id"`
	ClientID   string         `json:"client_id" cbor:"client_id"`
	Vector     []float64      `json:"vector" cbor:"vector"`
	NumSamples int            `json:"num_samples,omitempty" cbor:"num_samples,omitempty"`
	Metrics    map[string]any `json:"metrics,omitempty" cbor:"metrics,omitempty"`
	ReceivedAt time.Time      `json:"received_at" cbor:"received_at"`
}

// Status is the cheap polling view of a round.
type Status struct {
	RoundID   string `json:"round_id"`
	State     string `json:"state"`
	Received  int    `json:"received"`
	Quorum    int    `json:"quorum"`
	Completed bool   `json:"completed"`
}

type Page struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}

// HasUpdate reports whether the participant already contributed to the
// round.
func (r Round) HasUpdate(clientID string) bool {
	for _, u := range r.Updates {
		if u.ClientID == clientID {
			return true
		}
	}

	return false
}

// Vectors returns the update vectors in submission order.
func (r Round) Vectors() [][]float64 {
	out := make([][]float64, len(r.Updates))
	for i, u := range r.Updates {
		out[i] = u.Vector
	}

	return out
}

// Expired reports whether the round outlived its timeout without closing.
// Rounds without a timeout never expire.
func (r Round) Expired(now time.Time) bool {
	return r.Timeout > 0 && now.Sub(r.StartedAt) >= r.Timeout
}

// Open reports whether the round still accepts updates.
func (r Round) Open() bool {
	return r.State == Collecting
}

// Package store implements C3: an abstract per-document store with atomic
// partial updates and a change feed, matching spec §4.3 and §9's "Change
// feed" design note. The patch DSL (Set/Inc/Max/Min/Push/Pull) is modelled
// directly on MongoDB's own update operators ($set/$inc/$max/$min/$push/
// $pull), since the production backend is go.mongodb.org/mongo-driver and
// its change streams are the literal model for Watch.
package store

import "context"

type OpType string

const (
	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// ChangeEvent is emitted after a successful mutation. UpdatedFields holds
// the dotted paths that changed, the input the fan-out dispatcher (C11)
// classifies against its trigger table.
type ChangeEvent struct {
	Collection    string
	ID            string
	Op            OpType
	UpdatedFields []string
}

// PullMatch is an equality predicate over a subdocument's fields, applied
// element-wise against the array found at a Pull path.
type PullMatch map[string]any

// Patch is a structured diff applied atomically to one document. Every
// field path is dotted; array elements are addressed by integer index
// (e.g. "players.2.turnInfo.drinksPerPlayer").
type Patch struct {
	Set  map[string]any
	Inc  map[string]float64
	Max  map[string]float64
	Min  map[string]float64
	Push map[string]any
	Pull map[string]PullMatch
}

// IsEmpty reports whether a patch has no operators, the case a service
// should treat as a no-op rather than issuing a round trip.
func (p Patch) IsEmpty() bool {
	return len(p.Set) == 0 && len(p.Inc) == 0 && len(p.Max) == 0 &&
		len(p.Min) == 0 && len(p.Push) == 0 && len(p.Pull) == 0
}

// Lister is a narrow extension beyond spec §4.3's core verbs, used for
// lookups by field value: the public lobby listing (`GET /get-lobbies`,
// spec §6), lobby-code resolution and uniqueness checks in internal/lobby,
// and friend-code resolution in internal/friend. Both backends implement
// it; it is not part of the Store interface proper, and callers
// type-assert a Store for it.
type Lister interface {
	List(ctx context.Context, collection string, filter map[string]any, out any) error
}

// Store is the abstraction every service (C7-C10) is built against. A
// single Update call is the atomicity unit spec §5 relies on: "every
// command that touches game state performs a single atomic update."
type Store interface {
	Read(ctx context.Context, collection, id string, out any) error
	Insert(ctx context.Context, collection, id string, doc any) error
	Update(ctx context.Context, collection, id string, patch Patch) error
	Delete(ctx context.Context, collection, id string) error

	// Watch returns the change feed. It may be called exactly once per
	// process; the fan-out dispatcher (C11) is its sole consumer, per
	// spec §5's ordering guarantee ("the dispatcher processes change
	// events in the order the store emits them for a given document").
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is the store-layer fallback described in spec §9's "Change
// feed" note: "If the chosen store lacks one, an equivalent is implemented
// at the service layer... each mutating service method, after a
// successful update, emits the event onto an internal bus the dispatcher
// consumes." It keeps documents as generic JSON trees (map[string]any /
// []any) so ApplyPatch's dotted-path walker can operate on them. The
// Mongo backend does not use the walker; it hands patches to Mongo's own
// update operators.
type MemoryStore struct {
	mu    sync.Mutex
	docs  map[string]map[string]map[string]any // collection -> id -> doc
	subs  []chan ChangeEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]map[string]any),
	}
}

func toGeneric(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromGeneric(m map[string]any, out any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func cloneGeneric(m map[string]any) map[string]any {
	// Round-trip through JSON for a deep copy; documents here are small
	// enough (a single game/lobby) that this is cheap relative to a
	// hand-rolled deep-copy walker.
	b, _ := json.Marshal(m)
	var dst map[string]any
	_ = json.Unmarshal(b, &dst)
	return dst
}

func (s *MemoryStore) Read(_ context.Context, collection, id string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.docs[collection]
	if !ok {
		return fmt.Errorf("store: document %s/%s not found", collection, id)
	}
	doc, ok := coll[id]
	if !ok {
		return fmt.Errorf("store: document %s/%s not found", collection, id)
	}
	return fromGeneric(doc, out)
}

func (s *MemoryStore) Insert(_ context.Context, collection, id string, doc any) error {
	generic, err := toGeneric(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.docs[collection] = coll
	}
	coll[id] = generic
	s.mu.Unlock()

	s.publish(ChangeEvent{Collection: collection, ID: id, Op: OpInsert})
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, patch Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	coll, ok := s.docs[collection]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: document %s/%s not found", collection, id)
	}
	doc, ok := coll[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: document %s/%s not found", collection, id)
	}

	touched := ApplyPatch(doc, patch)
	s.mu.Unlock()

	s.publish(ChangeEvent{Collection: collection, ID: id, Op: OpUpdate, UpdatedFields: touched})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	coll, ok := s.docs[collection]
	if ok {
		delete(coll, id)
	}
	s.mu.Unlock()

	s.publish(ChangeEvent{Collection: collection, ID: id, Op: OpDelete})
	return nil
}

func (s *MemoryStore) Watch(_ context.Context) (<-chan ChangeEvent, error) {
	ch := make(chan ChangeEvent, 1024)

	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	return ch, nil
}

func (s *MemoryStore) publish(evt ChangeEvent) {
	s.mu.Lock()
	subs := make([]chan ChangeEvent, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			// A stalled dispatcher should not block mutations; the
			// dispatcher's next read picks up the current document
			// state regardless of a dropped event.
		}
	}
}

// List returns every document in collection matching filter (a flat
// equality map) decoded into *out (a pointer to a slice of the
// collection's document type).
func (s *MemoryStore) List(_ context.Context, collection string, filter map[string]any, out any) error {
	s.mu.Lock()
	coll := s.docs[collection]
	matches := make([]map[string]any, 0, len(coll))
	for _, doc := range coll {
		if matchesFilter(doc, filter) {
			matches = append(matches, cloneGeneric(doc))
		}
	}
	s.mu.Unlock()

	b, err := json.Marshal(matches)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func matchesFilter(doc map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// snapshot returns a deep copy of one stored document's generic tree, or
// nil if it is absent, without going through Read's typed round trip.
func (s *MemoryStore) snapshot(collection, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.docs[collection]
	if !ok {
		return nil
	}
	doc, ok := coll[id]
	if !ok {
		return nil
	}
	return cloneGeneric(doc)
}

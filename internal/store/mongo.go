package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the production Store backend. Its Update translates the
// Patch DSL directly into Mongo's own $set/$inc/$max/$min/$push/$pull
// operators, and Watch consumes a database-wide change stream.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Read(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err != nil {
		return fmt.Errorf("store: document %s/%s not found: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, collection, id string, doc any) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

func patchToMongoUpdate(p Patch) bson.M {
	update := bson.M{}

	if len(p.Set) > 0 {
		set := bson.M{}
		for k, v := range p.Set {
			set[k] = v
		}
		update["$set"] = set
	}
	if len(p.Inc) > 0 {
		inc := bson.M{}
		for k, v := range p.Inc {
			inc[k] = v
		}
		update["$inc"] = inc
	}
	if len(p.Max) > 0 {
		m := bson.M{}
		for k, v := range p.Max {
			m[k] = v
		}
		update["$max"] = m
	}
	if len(p.Min) > 0 {
		m := bson.M{}
		for k, v := range p.Min {
			m[k] = v
		}
		update["$min"] = m
	}
	if len(p.Push) > 0 {
		m := bson.M{}
		for k, v := range p.Push {
			m[k] = v
		}
		update["$push"] = m
	}
	if len(p.Pull) > 0 {
		m := bson.M{}
		for k, v := range p.Pull {
			match := bson.M{}
			for mk, mv := range v {
				match[mk] = mv
			}
			m[k] = match
		}
		update["$pull"] = m
	}

	return update
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, patch Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	update := patchToMongoUpdate(patch)

	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("store: document %s/%s not found", collection, id)
	}
	return nil
}

// List satisfies Lister for field-value lookups (lobby listing, lobby
// and friend codes).
func (s *MongoStore) List(ctx context.Context, collection string, filter map[string]any, out any) error {
	mongoFilter := bson.M{}
	for k, v := range filter {
		mongoFilter[k] = v
	}

	cur, err := s.db.Collection(collection).Find(ctx, mongoFilter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	return cur.All(ctx, out)
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Watch opens a database-wide change stream and translates each raw event
// into a ChangeEvent. The dispatcher (C11) treats per-document ordering as
// authoritative; Mongo preserves per-shard-key (here, per-_id) ordering
// within a single change stream, matching spec §5.
func (s *MongoStore) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.db.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan ChangeEvent, 1024)

	go func() {
		defer close(out)
		defer stream.Close(ctx)

		for stream.Next(ctx) {
			var raw bson.M
			if err := stream.Decode(&raw); err != nil {
				continue
			}

			evt, ok := decodeChangeEvent(raw)
			if !ok {
				continue
			}

			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func decodeChangeEvent(raw bson.M) (ChangeEvent, bool) {
	opType, _ := raw["operationType"].(string)

	var coll string
	if ns, ok := raw["ns"].(bson.M); ok {
		coll, _ = ns["coll"].(string)
	}

	var id string
	if docKey, ok := raw["documentKey"].(bson.M); ok {
		id = fmt.Sprintf("%v", docKey["_id"])
	}

	var op OpType
	switch opType {
	case "insert":
		op = OpInsert
	case "update", "replace":
		op = OpUpdate
	case "delete":
		op = OpDelete
	default:
		return ChangeEvent{}, false
	}

	var fields []string
	if ud, ok := raw["updateDescription"].(bson.M); ok {
		if uf, ok := ud["updatedFields"].(bson.M); ok {
			for k := range uf {
				fields = append(fields, k)
			}
		}
	}

	return ChangeEvent{Collection: coll, ID: id, Op: op, UpdatedFields: fields}, true
}

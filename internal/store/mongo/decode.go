package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/dossier/internal/store"
)

// toHit converts a raw document into a hit with driver types normalized to
// plain Go values.
func toHit(raw bson.M) store.Hit {
	h := store.Hit{Document: store.Document{Source: make(map[string]any, len(raw))}}
	for k, v := range raw {
		switch k {
		case "_id":
			h.ID = idString(v)
		case partitionField:
			h.Partition, _ = v.(string)
		case scoreField:
			h.Score, _ = v.(float64)
		default:
			h.Source[k] = normalize(v)
		}
	}
	return h
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(v)
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case bson.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

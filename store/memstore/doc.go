package memstore

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"potluck/models"
	"potluck/store"
)

func encodeEvent(ev *models.Event) (bson.M, error) {
	data, err := bson.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return doc, nil
}

func decodeEvent(doc bson.M) (*models.Event, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	var ev models.Event
	if err := bson.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

// toDocValue converts a Go value into the generic form stored in documents.
func toDocValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	var wrapped bson.M
	if err := bson.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}

func version(doc bson.M) int64 {
	switch v := doc["version"].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// asMap returns v as a mutable map. Embedded documents may come back from the
// decoder as bson.D; those are converted.
func asMap(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return bson.M(m), true
	case primitive.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

// applyPatch converts every value before touching doc so a failed patch
// leaves it unchanged.
func applyPatch(doc bson.M, p store.Patch) error {
	values := make(map[string]any, len(p.Set))
	for path, raw := range p.Set {
		v, err := toDocValue(raw)
		if err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
		values[path] = v
	}
	for path, v := range values {
		setPath(doc, path, v)
	}
	for _, path := range p.Unset {
		unsetPath(doc, path)
	}
	return nil
}

func setPath(doc bson.M, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, key := range parts[:len(parts)-1] {
		child, ok := asMap(cur[key])
		if !ok {
			child = bson.M{}
		}
		cur[key] = child
		cur = child
	}
	cur[parts[len(parts)-1]] = v
}

func unsetPath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, key := range parts[:len(parts)-1] {
		child, ok := asMap(cur[key])
		if !ok {
			return
		}
		cur[key] = child
		cur = child
	}
	delete(cur, parts[len(parts)-1])
}

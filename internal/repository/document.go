package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"freelanceos/internal/model"
)

// toDocument marshals obj and splits the store-managed meta fields off the JSON body.
func toDocument(obj any) (map[string]any, model.Meta, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("encode document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, model.Meta{}, fmt.Errorf("encode document: %w", err)
	}

	var meta model.Meta
	if id, ok := doc["id"].(string); ok {
		meta.ID = id
	}
	if by, ok := doc["created_by"].(string); ok {
		meta.CreatedBy = by
	}
	stripMeta(doc)
	return doc, meta, nil
}

func stripMeta(doc map[string]any) {
	for _, k := range model.MetaKeys {
		delete(doc, k)
	}
}

// fromDocument rebuilds a typed entity from its JSON body and columns.
func fromDocument[T model.Entity](data []byte, meta model.Meta) (T, error) {
	var out T
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return out, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	doc["id"] = meta.ID
	doc["created_by"] = meta.CreatedBy
	doc["created_date"] = meta.CreatedDate.UTC().Format(time.RFC3339Nano)
	doc["updated_date"] = meta.UpdatedDate.UTC().Format(time.RFC3339Nano)

	raw, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// normalize round-trips v through JSON so numbers and nested values compare like stored data.
func normalize(v map[string]any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return out, nil
}

package entity

import (
	"encoding/json"
	"fmt"

	"freelanceos/internal/model"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/rbac"
)

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap[T any](m map[string]any) (*T, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &out, nil
}

// decodeBody parses a create payload, dropping any store-managed fields the caller sent.
func decodeBody[T model.Entity](body []byte) (*T, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrValidation)
	}
	for _, k := range model.MetaKeys {
		delete(m, k)
	}
	return fromMap[T](m)
}

// MergePatch applies patch on top of obj the same way the store merges documents.
func MergePatch[T any](obj *T, patch map[string]any) (*T, error) {
	m, err := toMap(obj)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		m[k] = v
	}
	return fromMap[T](m)
}

// ClientIDOf returns the client_id field of a document, if any.
func ClientIDOf(v any) string {
	m, err := toMap(v)
	if err != nil {
		return ""
	}
	id, _ := m["client_id"].(string)
	return id
}

func withCreatedBy[T any](obj *T, userID string) (*T, error) {
	m, err := toMap(obj)
	if err != nil {
		return nil, err
	}
	m["created_by"] = userID
	return fromMap[T](m)
}

// forcePortalFields pins portal-authored messages to the sender's client.
// A body naming another client is rejected rather than silently rewritten.
func forcePortalFields[T any](obj *T, actor auth.Actor) (*T, error) {
	m, err := toMap(obj)
	if err != nil {
		return nil, err
	}
	if id, _ := m["client_id"].(string); id != "" {
		if err := rbac.ValidateClientScope(actor.Role, actor.ClientID, id); err != nil {
			return nil, err
		}
	}
	m["client_id"] = actor.ClientID
	m["channel"] = model.ChannelPortal
	m["status"] = model.MessageUnread
	delete(m, "ai_analysis")
	return fromMap[T](m)
}

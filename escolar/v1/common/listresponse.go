package common

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ListResponse accepts the list shapes the API returns: a bare array,
// {"items": [...], "total": n} or {"data": [...]}.
type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func (l *ListResponse[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		l.Items = items
		l.Total = int64(len(items))
		return nil
	}

	var envelope struct {
		Items []T    `json:"items"`
		Data  []T    `json:"data"`
		Total *int64 `json:"total"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return fmt.Errorf("unexpected list payload: %w", err)
	}

	l.Items = envelope.Items
	if l.Items == nil {
		l.Items = envelope.Data
	}
	if l.Items == nil {
		l.Items = []T{}
	}
	l.Total = int64(len(l.Items))
	if envelope.Total != nil {
		l.Total = *envelope.Total
	}
	return nil
}

// Nested unwraps join rows of the form {"student": {...}} into the inner
// value while passing plain values through.
type Nested[T any] struct {
	Value T
}

func (n *Nested[T]) UnmarshalJSON(b []byte) error {
	var wrapper struct {
		Student json.RawMessage `json:"student"`
	}
	if err := json.Unmarshal(b, &wrapper); err == nil && len(wrapper.Student) > 0 && !bytes.Equal(wrapper.Student, []byte("null")) {
		return json.Unmarshal(wrapper.Student, &n.Value)
	}
	return json.Unmarshal(b, &n.Value)
}

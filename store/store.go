// Package store persists the client's local state as JSON documents under
// fixed keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeyCurrentUser         = "currentUser"
	KeyOfflineActions      = "offlineActions"
	KeyOfflineDeadLetters  = "offlineDeadLetters"
	KeyOfflineStudents     = "offline_students"
	KeyOfflineGroups       = "offline_groups"
	KeyOfflinePeriods      = "offline_periods"
	KeyOfflineCourses      = "offline_courses"
	KeyOfflineAttendances  = "offline_attendances"
	KeyOfflineGrades       = "offline_grades"
	KeyOfflinePartialGrade = "offline_partial_grades"
	KeyOfflineFinalGrade   = "offline_final_grades"
)

var ErrNotFound = errors.New("store: key not found")

// Store is a key-value document store. Values are JSON encoded.
type Store interface {
	// Get decodes the value stored under key into v. It reports false
	// when the key is absent.
	Get(ctx context.Context, key string, v any) (bool, error)
	Put(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// Load returns the value under key, or the zero value when absent.
func Load[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	if _, err := s.Get(ctx, key, &v); err != nil {
		return v, err
	}
	return v, nil
}

// MustExist is Load but fails with ErrNotFound when the key is absent.
func MustExist[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

func encode(key string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return b, nil
}

func decode(key string, b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

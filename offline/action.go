package offline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EntityType names the resource an action targets.
type EntityType string

const (
	EntityStudent      EntityType = "student"
	EntityTeacher      EntityType = "teacher"
	EntityCourse       EntityType = "course"
	EntityGroup        EntityType = "group"
	EntityPeriod       EntityType = "period"
	EntityAttendance   EntityType = "attendance"
	EntityGrade        EntityType = "grade"
	EntityPartialGrade EntityType = "partial_grade"
	EntityFinalGrade   EntityType = "final_grade"
)

var EntityTypes = []EntityType{
	EntityStudent, EntityTeacher, EntityCourse, EntityGroup, EntityPeriod,
	EntityAttendance, EntityGrade, EntityPartialGrade, EntityFinalGrade,
}

func (e EntityType) Valid() bool {
	for _, t := range EntityTypes {
		if e == t {
			return true
		}
	}
	return false
}

type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

func (k Kind) Valid() bool {
	return k == KindCreate || k == KindUpdate || k == KindDelete
}

var (
	ErrServerUnreachable = errors.New("server unreachable")
	ErrNotFound          = errors.New("entity not found")
	ErrUnknownEntity     = errors.New("unknown entity type")
	ErrUnsupported       = errors.New("operation not supported for entity")
)

// Action is one queued mutation. EntityID is the key of the target: the
// client id of a pending entity or the decimal server id.
type Action struct {
	ID        string          `json:"id"`
	Type      EntityType      `json:"type"`
	Action    Kind            `json:"action"`
	EntityID  string          `json:"entityId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Attempts  int             `json:"attempts,omitempty"`
	LastError string          `json:"lastError,omitempty"`
}

func NewAction(t EntityType, k Kind, entityID string, data any) (Action, error) {
	if !t.Valid() {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownEntity, t)
	}
	if !k.Valid() {
		return Action{}, fmt.Errorf("unknown action %q", k)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Action{}, fmt.Errorf("generate action id: %w", err)
	}

	a := Action{
		ID:        id.String(),
		Type:      t,
		Action:    k,
		EntityID:  entityID,
		Timestamp: time.Now().UnixMilli(),
	}
	if data != nil {
		raw, ok := data.(json.RawMessage)
		if !ok {
			raw, err = json.Marshal(data)
			if err != nil {
				return Action{}, fmt.Errorf("encode %s %s payload: %w", k, t, err)
			}
		}
		a.Data = raw
	}
	return a, nil
}

// target identifies the entity for ordering purposes.
func (a Action) target() string {
	return string(a.Type) + ":" + a.EntityID
}

func (a Action) ServerID() (int64, bool) {
	return parseServerID(a.EntityID)
}

// Ref is the identity of a cached entity. A ref stays pending until the
// server assigns an id.
type Ref struct {
	ClientID string `json:"clientId,omitempty"`
	ServerID int64  `json:"serverId,omitempty"`
}

func NewPendingRef() Ref {
	return Ref{ClientID: NewClientID()}
}

func ServerRef(id int64) Ref {
	return Ref{ServerID: id}
}

// ParseRef resolves a key produced by Ref.Key.
func ParseRef(key string) Ref {
	if id, ok := parseServerID(key); ok {
		return ServerRef(id)
	}
	return Ref{ClientID: key}
}

func (r Ref) Pending() bool {
	return r.ServerID == 0
}

func (r Ref) Key() string {
	if r.ServerID != 0 {
		return strconv.FormatInt(r.ServerID, 10)
	}
	return r.ClientID
}

// Matches reports whether key names this entity, by either identity.
func (r Ref) Matches(key string) bool {
	if key == "" {
		return false
	}
	return key == r.Key() || (r.ClientID != "" && key == r.ClientID)
}

// NewClientID returns a time-ordered id for an entity the server has not
// seen yet.
func NewClientID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func parseServerID(key string) (int64, bool) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

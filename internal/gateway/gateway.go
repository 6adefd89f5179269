// Package gateway is the collection-oriented document store the resume core
// persists through.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document id does not exist in a collection.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidBody rejects bodies that are not JSON objects.
	ErrInvalidBody = errors.New("document body must be a json object")
)

// Record 是文档存储中的一条文档及其元数据。
type Record struct {
	ID          string          `json:"id"`
	Collection  string          `json:"collection"`
	OwnerID     string          `json:"ownerId"`
	Body        json.RawMessage `json:"body"`
	CreatedAt   time.Time       `json:"createdAt"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Gateway is the minimal capability set of the document store. Update merges
// the top-level keys of patch into the stored body and fails with ErrNotFound
// when id does not exist. Timestamps are always assigned by the store.
type Gateway interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Create(ctx context.Context, collection, ownerID string, body json.RawMessage) (Record, error)
	Update(ctx context.Context, collection, id string, patch json.RawMessage) (Record, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection, ownerID string) ([]Record, error)
}

// EventType 表示文档变更类型。
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event describes one committed change.
type Event struct {
	Type        EventType `json:"type"`
	Collection  string    `json:"collection"`
	ID          string    `json:"id"`
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
}

// Publisher fans out committed changes.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber streams changes of a collection, or of a single document when id
// is not empty. The channel is closed once ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, collection, id string) (<-chan Event, error)
}

// mergeBody overlays the top-level keys of patch onto base.
func mergeBody(base, patch json.RawMessage) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, errors.Join(ErrInvalidBody, err)
		}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil || fields == nil {
		return nil, errors.Join(ErrInvalidBody, err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func checkObject(body json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return errors.Join(ErrInvalidBody, err)
	}
	return nil
}

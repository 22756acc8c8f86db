package storage

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskpad/domain"
)

// DefaultNamespaceKey is the fixed key the serialized collection lives
// under when none is supplied.
const DefaultNamespaceKey = "taskpad.tasks"

// Adapter persists the whole task collection as a single text blob under a
// fixed namespace key and rebuilds it defensively on load. It implements
// domain.Persistence.
type Adapter struct {
	blobs  BlobStore
	key    string
	logger *log.Logger

	now func() time.Time
}

// NewAdapter builds an adapter over blobs. An empty key selects
// DefaultNamespaceKey; a nil logger falls back to the logrus standard
// logger.
func NewAdapter(blobs BlobStore, key string, logger *log.Logger) *Adapter {
	if blobs == nil {
		panic("storage.NewAdapter: blob store is nil")
	}
	if key == "" {
		key = DefaultNamespaceKey
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Adapter{blobs: blobs, key: key, logger: logger, now: time.Now}
}

// Load reads and normalizes the persisted collection. The blob is untyped
// external state that may have been hand-edited or written by another
// schema version, so nothing here surfaces as an error: an absent blob,
// unparsable text or a non-array payload all degrade to an empty
// collection, and individual malformed records are repaired in place.
func (a *Adapter) Load(ctx context.Context) ([]domain.Task, error) {
	raw, ok, err := a.blobs.Load(ctx, a.key)
	if err != nil {
		a.logger.WithError(err).WithField("key", a.key).Warn("load tasks blob")
		return []domain.Task{}, nil
	}
	if !ok {
		return []domain.Task{}, nil
	}
	var records []interface{}
	if err := sonic.UnmarshalString(raw, &records); err != nil {
		a.logger.WithError(err).WithField("key", a.key).Warn("stored tasks unreadable; starting empty")
		return []domain.Task{}, nil
	}
	tasks := make([]domain.Task, 0, len(records))
	for i, rec := range records {
		fields, _ := rec.(map[string]interface{})
		tasks = append(tasks, a.normalize(fields, i))
	}
	return tasks, nil
}

// Save serializes the full collection and overwrites the blob. Backend
// failures are returned as-is; the store wraps them.
func (a *Adapter) Save(ctx context.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	payload, err := sonic.MarshalString(tasks)
	if err != nil {
		return err
	}
	return a.blobs.Save(ctx, a.key, payload)
}

// normalize coerces one stored record into a Task: a missing id gets a
// fresh one, title is trimmed text, completed follows loose truthiness,
// a missing createdAt becomes "now" and a non-numeric order becomes the
// record's position in the loaded sequence.
func (a *Adapter) normalize(fields map[string]interface{}, pos int) domain.Task {
	t := domain.Task{Order: pos}
	if v, ok := fields["id"].(string); ok && v != "" {
		t.ID = v
	} else {
		t.ID = uuid.NewString()
	}
	if v, ok := fields["title"].(string); ok {
		t.Title = strings.TrimSpace(v)
	}
	if v, ok := fields["due"].(string); ok {
		t.Due = v
	}
	t.Completed = truthy(fields["completed"])
	if v, ok := fields["createdAt"].(string); ok && v != "" {
		t.CreatedAt = v
	} else {
		t.CreatedAt = a.now().UTC().Format(time.RFC3339)
	}
	if v, ok := fields["order"].(float64); ok {
		t.Order = int(v)
	}
	return t
}

// truthy mirrors the loose boolean coercion applied to untyped stored
// values: null, false, zero and the empty string are false, anything else
// is true.
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/totegamma/gamecatalog/internal/utils"
)

// IDField is the identifier key of a rendered record.
const IDField = "_id"

// Record is one stored document. The store owns it; handlers only hold the
// copy returned for the current request.
type Record struct {
	ID     string
	Fields map[string]any
}

// Name returns the record's name field, or "" when absent.
func (r Record) Name() string {
	name, _ := r.Fields["name"].(string)
	return name
}

// Clone copies the top-level field map.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Fields: fields}
}

// MarshalJSON renders _id first and the remaining fields sorted by key.
// It is the storage and cache encoding; responses and change events go
// through the entity schema, which keeps schema field order.
func (r Record) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	om := utils.NewOrderedMap[any](len(keys) + 1)
	if r.ID != "" {
		om.Set(IDField, r.ID)
	}
	for _, k := range keys {
		om.Set(k, r.Fields[k])
	}
	return om.MarshalJSON()
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = ""
	if id, ok := raw[IDField]; ok {
		s, ok := id.(string)
		if !ok {
			return fmt.Errorf("record %s must be a string", IDField)
		}
		r.ID = s
		delete(raw, IDField)
	}
	r.Fields = raw
	return nil
}

// Change actions published after a successful mutation.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ChangeEvent announces a mutation of one record. Record holds the record as
// the API renders it and is empty for deletions.
type ChangeEvent struct {
	Entity string          `json:"entity"`
	Action string          `json:"action"`
	ID     string          `json:"id"`
	Record json.RawMessage `json:"record,omitempty"`
	Time   time.Time       `json:"time"`
}

package workbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"tabula/cmd/internal/fault"
	"tabula/cmd/kv"
)

// Rows is an ordered record table. Each row is kept as opaque JSON, normally
// an array of cell strings.
type Rows []json.RawMessage

// ParseRows accepts only a JSON array. null, objects, scalars and empty input
// are validation failures.
func ParseRows(raw json.RawMessage) (Rows, error) {
	const op = "workbook.ParseRows"

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fault.Validation(op, MsgRowsInvalid)
	}

	var rows Rows
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fault.Error{Op: op, Kind: fault.ErrValidation, Msg: MsgRowsInvalid, Err: err}
	}
	if rows == nil {
		rows = Rows{}
	}
	return rows, nil
}

// RecordStore persists one record table per (username, page id).
type RecordStore struct {
	kv kv.Store
}

// NewRecordStore binds a RecordStore to st.
func NewRecordStore(st kv.Store) *RecordStore {
	return &RecordStore{kv: st}
}

// Get returns the stored rows, or an empty table when nothing was written.
func (s *RecordStore) Get(ctx context.Context, username, pageID string) (Rows, error) {
	const op = "workbook.RecordStore.Get"

	if s == nil || s.kv == nil {
		return nil, unbound(op)
	}
	key, err := kv.RecordKey(username, pageID)
	if err != nil {
		return nil, fault.Error{Op: op, Kind: fault.ErrValidation, Msg: MsgRowsInvalid, Err: err}
	}

	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return Rows{}, nil
	}
	if err != nil {
		return nil, fault.Store(op, MsgRowsGetFail, err)
	}

	var rows Rows
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fault.Store(op, MsgRowsGetFail, err)
	}
	if rows == nil {
		rows = Rows{}
	}
	return rows, nil
}

// Put validates raw as a JSON array and replaces the stored table.
// Nothing is written when validation fails.
func (s *RecordStore) Put(ctx context.Context, username, pageID string, raw json.RawMessage) error {
	const op = "workbook.RecordStore.Put"

	if s == nil || s.kv == nil {
		return unbound(op)
	}
	key, err := kv.RecordKey(username, pageID)
	if err != nil {
		return fault.Error{Op: op, Kind: fault.ErrValidation, Msg: MsgRowsInvalid, Err: err}
	}

	rows, err := ParseRows(raw)
	if err != nil {
		return err
	}

	enc, err := json.Marshal(rows)
	if err != nil {
		return fault.Store(op, MsgRowsPutFail, err)
	}
	if err := s.kv.Put(ctx, key, enc); err != nil {
		return fault.Store(op, MsgRowsPutFail, err)
	}
	return nil
}

package workbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tabula/cmd/internal/fault"
	"tabula/cmd/kv"
)

// Column bounds for a page.
const (
	MinColumns = 1
	MaxColumns = 20
)

// DefaultPageTitle is the title of the page served before any configuration is saved.
const DefaultPageTitle = "默认页面"

// PageDefinition describes one editor page.
type PageDefinition struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Columns int    `json:"columns"`
}

// Configuration is the ordered list of pages, stored as one value.
type Configuration struct {
	Pages []PageDefinition `json:"pages"`
}

// DefaultConfiguration is returned when nothing has been stored yet.
func DefaultConfiguration() Configuration {
	return Configuration{Pages: []PageDefinition{{ID: "1", Title: DefaultPageTitle, Columns: 3}}}
}

// Validate checks every page. The first invalid page rejects the whole configuration.
func (c Configuration) Validate() error {
	const op = "workbook.Configuration.Validate"

	if c.Pages == nil {
		return fault.Validation(op, MsgConfigInvalid)
	}
	for i, p := range c.Pages {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Title) == "" || p.Columns == 0 {
			return fault.Error{Op: op, Kind: fault.ErrValidation, Msg: MsgPageIncomplete, Err: fmt.Errorf("page %d", i)}
		}
		if p.Columns < MinColumns || p.Columns > MaxColumns {
			return fault.Error{Op: op, Kind: fault.ErrValidation, Msg: MsgColumnsRange, Err: fmt.Errorf("page %d: columns=%d", i, p.Columns)}
		}
	}
	return nil
}

// DecodeConfiguration parses a request body into a Configuration.
// Shape errors (e.g. non-integer columns) are validation failures.
func DecodeConfiguration(raw []byte) (Configuration, error) {
	var c Configuration
	if err := json.Unmarshal(raw, &c); err != nil {
		return Configuration{}, fault.Error{Op: "workbook.DecodeConfiguration", Kind: fault.ErrValidation, Msg: MsgConfigInvalid, Err: err}
	}
	return c, nil
}

// ConfigStore persists the Configuration under kv.ConfigKey.
type ConfigStore struct {
	kv kv.Store
}

// NewConfigStore binds a ConfigStore to st. A nil st yields a store whose
// operations fail with a store error.
func NewConfigStore(st kv.Store) *ConfigStore {
	return &ConfigStore{kv: st}
}

// Get returns the stored Configuration or DefaultConfiguration when none exists.
func (s *ConfigStore) Get(ctx context.Context) (Configuration, error) {
	const op = "workbook.ConfigStore.Get"

	if s == nil || s.kv == nil {
		return Configuration{}, unbound(op)
	}

	raw, err := s.kv.Get(ctx, kv.ConfigKey())
	if errors.Is(err, kv.ErrNotFound) {
		return DefaultConfiguration(), nil
	}
	if err != nil {
		return Configuration{}, fault.Store(op, MsgConfigGetFail, err)
	}

	var c Configuration
	if err := json.Unmarshal(raw, &c); err != nil {
		return Configuration{}, fault.Store(op, MsgConfigGetFail, err)
	}
	if c.Pages == nil {
		c.Pages = []PageDefinition{}
	}
	return c, nil
}

// Put validates c and overwrites the stored Configuration.
func (s *ConfigStore) Put(ctx context.Context, c Configuration) error {
	const op = "workbook.ConfigStore.Put"

	if s == nil || s.kv == nil {
		return unbound(op)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fault.Store(op, MsgConfigPutFail, err)
	}
	if err := s.kv.Put(ctx, kv.ConfigKey(), raw); err != nil {
		return fault.Store(op, MsgConfigPutFail, err)
	}
	return nil
}

// ErrUnbound is the cause attached to store errors raised without a backend.
var ErrUnbound = errors.New("workbook: kv store not bound")

func unbound(op string) error {
	return fault.Store(op, MsgStoreUnbound, ErrUnbound)
}

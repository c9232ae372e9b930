package kv

import (
	"errors"
	"strings"
)

const (
	identityKey   = "admin"
	configKey     = "app:config"
	recordsPrefix = "records:"
)

// Key is an opaque, namespaced store key. The zero Key is invalid.
type Key struct {
	s string
}

func (k Key) String() string { return k.s }

// IsZero reports whether k was not produced by a builder.
func (k Key) IsZero() bool { return k.s == "" }

// IdentityKey addresses the singleton admin identity.
func IdentityKey() Key { return Key{s: identityKey} }

// ConfigKey addresses the page configuration aggregate.
func ConfigKey() Key { return Key{s: configKey} }

var componentEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// RecordKey addresses the record table of one page for one user.
//
// Components are percent-escaped for '%' and ':' so that ("a:b", "c") and
// ("a", "b:c") map to different keys. Plain inputs keep the
// "records:<user>:<page>" layout.
func RecordKey(username, pageID string) (Key, error) {
	if username == "" {
		return Key{}, errors.New("kv: record key: empty username")
	}
	if pageID == "" {
		return Key{}, errors.New("kv: record key: empty page id")
	}
	return Key{s: recordsPrefix + componentEscaper.Replace(username) + ":" + componentEscaper.Replace(pageID)}, nil
}

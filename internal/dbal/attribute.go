package dbal

import (
	"fmt"
	"strings"
	"time"
)

// Attribute identifies a per-connection configuration setting.
//
// The set of attributes is closed: only the constants below are accepted by
// the attribute store. Use String() for the canonical identifier when an
// attribute is persisted or logged.
type Attribute int

// Attribute keys.
const (
	AttrAutocommit Attribute = iota + 1
	AttrPrefetch
	AttrTimeout
	AttrErrMode
	AttrServerVersion
	AttrClientVersion
	AttrServerInfo
	AttrConnectionStatus
	AttrCase
	AttrCursorName
	AttrCursor
	AttrOracleNulls
	AttrPersistent
	AttrStatementClass
	AttrFetchTableNames
	AttrFetchCatalogNames
	AttrDriverName
	AttrStringifyFetches
	AttrMaxColumnLen
	AttrEmulatePrepares
	AttrDefaultFetchMode
)

// attributeNames holds the canonical identifier of every attribute.
var attributeNames = map[Attribute]string{
	AttrAutocommit:        "autocommit",
	AttrPrefetch:          "prefetch",
	AttrTimeout:           "timeout",
	AttrErrMode:           "errmode",
	AttrServerVersion:     "server_version",
	AttrClientVersion:     "client_version",
	AttrServerInfo:        "server_info",
	AttrConnectionStatus:  "connection_status",
	AttrCase:              "case",
	AttrCursorName:        "cursor_name",
	AttrCursor:            "cursor",
	AttrOracleNulls:       "oracle_nulls",
	AttrPersistent:        "persistent",
	AttrStatementClass:    "statement_class",
	AttrFetchTableNames:   "fetch_table_names",
	AttrFetchCatalogNames: "fetch_catalog_names",
	AttrDriverName:        "driver_name",
	AttrStringifyFetches:  "stringify_fetches",
	AttrMaxColumnLen:      "max_column_len",
	AttrEmulatePrepares:   "emulate_prepares",
	AttrDefaultFetchMode:  "default_fetch_mode",
}

// attributesByName is the reverse lookup for ParseAttribute.
var attributesByName map[string]Attribute

func init() {
	attributesByName = make(map[string]Attribute, len(attributeNames))
	for attr, name := range attributeNames {
		attributesByName[name] = attr
	}
}

// AllAttributes returns every valid attribute in declaration order.
func AllAttributes() []Attribute {
	all := make([]Attribute, 0, len(attributeNames))
	for a := AttrAutocommit; a <= AttrDefaultFetchMode; a++ {
		all = append(all, a)
	}
	return all
}

// Valid reports whether a is a member of the attribute enumeration.
func (a Attribute) Valid() bool {
	_, ok := attributeNames[a]
	return ok
}

// String returns the canonical identifier of the attribute.
func (a Attribute) String() string {
	if name, ok := attributeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("attribute(%d)", int(a))
}

// ParseAttribute resolves a canonical identifier (case-insensitive) to its
// attribute key.
func ParseAttribute(name string) (Attribute, error) {
	attr, ok := attributesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown attribute %q", ErrConfiguration, name)
	}
	return attr, nil
}

// Attributes is the per-connection attribute store.
//
// It is owned by exactly one driver and has no internal locking.
type Attributes struct {
	values map[Attribute]any
}

// NewAttributes creates an empty attribute store.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[Attribute]any)}
}

// Get returns the value stored for key. The boolean is false when the key
// has never been set (or is not a valid attribute); it never fails.
func (s *Attributes) Get(key Attribute) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key verbatim. It returns false, leaving the store
// unchanged, when key is not part of the attribute enumeration.
func (s *Attributes) Set(key Attribute, value any) bool {
	if !key.Valid() {
		return false
	}
	s.values[key] = value
	return true
}

// Len returns the number of attributes currently set.
func (s *Attributes) Len() int {
	return len(s.values)
}

// Snapshot returns a copy of every set attribute keyed by canonical name.
func (s *Attributes) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k.String()] = v
	}
	return out
}

// ErrMode is the value vocabulary of AttrErrMode.
type ErrMode int

// Error modes. Errors are returned to the caller in every mode; the mode
// only selects how a failure is additionally reported through the logger.
const (
	ErrModeSilent ErrMode = iota
	ErrModeWarning
	ErrModeException
)

// Case is the value vocabulary of AttrCase.
type Case int

// Column name folding.
const (
	CaseNatural Case = iota
	CaseLower
	CaseUpper
)

// Nulls is the value vocabulary of AttrOracleNulls.
type Nulls int

// Null conversion.
const (
	NullNatural Nulls = iota
	NullEmptyString
	NullToString
)

func (m ErrMode) String() string {
	switch m {
	case ErrModeSilent:
		return "silent"
	case ErrModeWarning:
		return "warning"
	case ErrModeException:
		return "exception"
	}
	return fmt.Sprintf("ErrMode(%d)", int(m))
}

func (c Case) String() string {
	switch c {
	case CaseNatural:
		return "natural"
	case CaseLower:
		return "lower"
	case CaseUpper:
		return "upper"
	}
	return fmt.Sprintf("Case(%d)", int(c))
}

func (n Nulls) String() string {
	switch n {
	case NullNatural:
		return "natural"
	case NullEmptyString:
		return "empty_string"
	case NullToString:
		return "to_string"
	}
	return fmt.Sprintf("Nulls(%d)", int(n))
}

// errModeOf reads AttrErrMode, defaulting to ErrModeException.
func errModeOf(s *Attributes) ErrMode {
	if v, ok := s.Get(AttrErrMode); ok {
		if m, ok := v.(ErrMode); ok {
			return m
		}
	}
	return ErrModeException
}

// TimeoutOf interprets AttrTimeout. Integers are seconds; a time.Duration is
// used as is. Zero means no deadline.
func TimeoutOf(s *Attributes) time.Duration {
	v, ok := s.Get(AttrTimeout)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case time.Duration:
		return t
	case int:
		return time.Duration(t) * time.Second
	case int64:
		return time.Duration(t) * time.Second
	case float64:
		return time.Duration(t * float64(time.Second))
	}
	return 0
}

// BoolOf interprets a flag attribute; unset or non-boolean values are false.
func BoolOf(s *Attributes, key Attribute) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

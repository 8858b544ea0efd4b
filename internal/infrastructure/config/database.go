package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nerrad567/graydb/internal/dbal"
)

// SQLite DSN options understood by the database package.
const (
	paramJournalMode = "journal_mode"
	paramBusyTimeout = "busy_timeout"
)

// errModes, cases and nullModes map YAML spellings onto attribute values.
var (
	errModes = map[string]dbal.ErrMode{
		"silent":    dbal.ErrModeSilent,
		"warning":   dbal.ErrModeWarning,
		"exception": dbal.ErrModeException,
	}
	cases = map[string]dbal.Case{
		"natural": dbal.CaseNatural,
		"lower":   dbal.CaseLower,
		"upper":   dbal.CaseUpper,
	}
	nullModes = map[string]dbal.Nulls{
		"natural":      dbal.NullNatural,
		"empty_string": dbal.NullEmptyString,
		"to_string":    dbal.NullToString,
	}
)

// DBAL converts the database section into a driver configuration and an
// initial attribute map for dbal.Open.
//
// For the SQLite drivers wal_mode and busy_timeout become DSN params unless
// params already sets them.
//
// Returns:
//   - dbal.Config: Connection settings
//   - map[dbal.Attribute]any: Initial attributes, nil when none are configured
//   - error: If an attribute name or value is invalid
func (d DatabaseConfig) DBAL() (dbal.Config, map[dbal.Attribute]any, error) {
	cfg := dbal.Config{
		Driver:   d.Driver,
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Schema:   d.Schema,
	}

	params := make(map[string]string, len(d.Params)+2)
	for k, v := range d.Params {
		params[k] = v
	}
	if isSQLite(d.Driver) {
		if _, set := params[paramJournalMode]; !set && d.WALMode {
			params[paramJournalMode] = "WAL"
		}
		if _, set := params[paramBusyTimeout]; !set && d.BusyTimeout > 0 {
			params[paramBusyTimeout] = strconv.Itoa(d.BusyTimeout)
		}
	}
	if len(params) > 0 {
		cfg.Params = params
	}

	attrs, err := parseAttributes(d.Attributes)
	if err != nil {
		return dbal.Config{}, nil, err
	}
	return cfg, attrs, nil
}

// parseAttributes converts YAML attribute entries into typed values.
// Problems are joined so every bad entry is reported.
func parseAttributes(raw map[string]any) (map[dbal.Attribute]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make(map[dbal.Attribute]any, len(raw))
	var errs []error
	for _, name := range names {
		key, err := dbal.ParseAttribute(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("database.attributes: %w", err))
			continue
		}
		v, err := attributeValue(key, raw[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("database.attributes.%s: %w", key, err))
			continue
		}
		attrs[key] = v
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return attrs, nil
}

// attributeValue interprets one configured value for key.
func attributeValue(key dbal.Attribute, v any) (any, error) {
	switch key {
	case dbal.AttrErrMode:
		return lookup(errModes, v)
	case dbal.AttrCase:
		return lookup(cases, v)
	case dbal.AttrOracleNulls:
		return lookup(nullModes, v)
	case dbal.AttrDefaultFetchMode:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want a fetch mode name, got %T", v)
		}
		mode, ok := dbal.ParseFetchMode(s)
		if !ok {
			return nil, fmt.Errorf("unknown fetch mode %q", s)
		}
		return mode, nil
	case dbal.AttrTimeout, dbal.AttrMaxColumnLen, dbal.AttrPrefetch:
		n, ok := v.(int)
		if !ok || n < 0 {
			return nil, fmt.Errorf("want a non-negative integer, got %v", v)
		}
		return n, nil
	case dbal.AttrAutocommit, dbal.AttrPersistent, dbal.AttrEmulatePrepares,
		dbal.AttrStringifyFetches, dbal.AttrFetchTableNames, dbal.AttrFetchCatalogNames:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want a boolean, got %v", v)
		}
		return b, nil
	case dbal.AttrCursorName, dbal.AttrStatementClass:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want a string, got %T", v)
		}
		return s, nil
	}
	return nil, errors.New("set by the driver, not configurable")
}

func lookup[T any](vocab map[string]T, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("want a string, got %T", v)
	}
	if out, ok := vocab[strings.ToLower(strings.TrimSpace(s))]; ok {
		return out, nil
	}
	names := make([]string, 0, len(vocab))
	for k := range vocab {
		names = append(names, k)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown value %q (want one of %s)", s, strings.Join(names, ", "))
}

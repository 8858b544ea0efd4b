package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nerrad567/graydb/internal/dbal"
)

// compiledQuery is SQL with its placeholders rewritten to the backend's
// bind style.
type compiledQuery struct {
	sql string

	// names lists :name placeholders in order of appearance.
	names []string

	// positional counts ? placeholders.
	positional int
}

// compileQuery rewrites ? and :name placeholders outside literals,
// identifiers and comments into the bind style of driverName.
// Mixing both styles in one statement is rejected.
func compileQuery(driverName, query string) (compiledQuery, error) {
	bindType := sqlx.BindType(driverName)

	var out strings.Builder
	out.Grow(len(query) + 8)

	var c compiledQuery
	n := 0
	emit := func() {
		n++
		switch bindType {
		case sqlx.DOLLAR:
			out.WriteString("$" + strconv.Itoa(n))
		case sqlx.AT:
			out.WriteString("@p" + strconv.Itoa(n))
		case sqlx.NAMED:
			out.WriteString(":arg" + strconv.Itoa(n))
		default:
			out.WriteByte('?')
		}
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end := skipQuoted(query, i, ch)
			out.WriteString(query[i:end])
			i = end - 1

		case ch == '[' && bindType == sqlx.AT:
			end := strings.IndexByte(query[i:], ']')
			if end < 0 {
				end = len(query) - i - 1
			}
			out.WriteString(query[i : i+end+1])
			i += end

		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			out.WriteString(query[i : i+end])
			i += end - 1

		case ch == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			stop := len(query)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			out.WriteString(query[i:stop])
			i = stop - 1

		case ch == ':' && i+1 < len(query) && query[i+1] == ':':
			// Postgres cast.
			out.WriteString("::")
			i++

		case ch == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			j := i + 1
			for j < len(query) && isNameChar(query[j]) {
				j++
			}
			c.names = append(c.names, query[i+1:j])
			emit()
			i = j - 1

		case ch == '?':
			c.positional++
			emit()

		default:
			out.WriteByte(ch)
		}
	}

	if len(c.names) > 0 && c.positional > 0 {
		return compiledQuery{}, fmt.Errorf("%w: statement mixes ? and :name placeholders", dbal.ErrBind)
	}
	c.sql = out.String()
	return c, nil
}

// maskSQL blanks the contents of literals, quoted identifiers and comments
// with spaces, using the same scanning rules as compileQuery. Offsets in
// the result match query.
func maskSQL(query string) string {
	b := []byte(query)
	blank := func(from, to int) {
		for k := from; k < to; k++ {
			if b[k] != '\n' {
				b[k] = ' '
			}
		}
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end := skipQuoted(query, i, ch)
			blank(i, end)
			i = end - 1

		case ch == '[':
			end := strings.IndexByte(query[i:], ']')
			stop := len(query)
			if end >= 0 {
				stop = i + end + 1
			}
			blank(i, stop)
			i = stop - 1

		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			stop := len(query)
			if end >= 0 {
				stop = i + end
			}
			blank(i, stop)
			i = stop - 1

		case ch == '/' && i+1 < len(query) && query[i+1] == '*':
			end := strings.Index(query[i+2:], "*/")
			stop := len(query)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			blank(i, stop)
			i = stop - 1
		}
	}
	return string(b)
}

// skipQuoted returns the index just past the quoted run starting at start.
// A doubled quote character is an escaped quote.
func skipQuoted(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func isNameStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || (ch >= '0' && ch <= '9')
}

// bindArgs maps Execute's parameters onto the compiled placeholders.
func (c compiledQuery) bindArgs(params []any) ([]any, error) {
	if len(c.names) == 0 {
		if len(params) == 1 {
			if _, ok := asNamed(params[0]); ok {
				return nil, fmt.Errorf("%w: named parameters given but statement has no :name placeholders", dbal.ErrBind)
			}
		}
		if c.positional > 0 && len(params) != c.positional {
			return nil, fmt.Errorf("%w: statement expects %d parameters, got %d", dbal.ErrBind, c.positional, len(params))
		}
		return params, nil
	}

	if len(params) != 1 {
		return nil, fmt.Errorf("%w: statement expects one set of named parameters, got %d values", dbal.ErrBind, len(params))
	}
	named, ok := asNamed(params[0])
	if !ok {
		return nil, fmt.Errorf("%w: statement expects named parameters, got %T", dbal.ErrBind, params[0])
	}

	args := make([]any, len(c.names))
	for i, name := range c.names {
		v, ok := named[name]
		if !ok {
			v, ok = named[":"+name]
		}
		if !ok {
			return nil, fmt.Errorf("%w: missing value for :%s", dbal.ErrBind, name)
		}
		args[i] = v
	}
	return args, nil
}

func asNamed(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case dbal.Named:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

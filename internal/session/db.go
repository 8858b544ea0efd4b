package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/graydb/internal/dbal"
)

// DBHandler stores sessions in a database table with the columns
// Id, Name, Data, Remember, Strict, RemoteAddr and Started.
type DBHandler struct {
	conn  *dbal.Conn
	table string
	name  string
	open  bool
	now   func() time.Time
}

// NewDBHandler creates a handler storing sessions in table through conn.
func NewDBHandler(conn *dbal.Conn, table string) (*DBHandler, error) {
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &DBHandler{conn: conn, table: table, now: time.Now}, nil
}

// Open records the default session name. savePath is ignored.
func (h *DBHandler) Open(_, name string) error {
	h.name = name
	h.open = true
	return nil
}

// Close marks the handler closed. The connection stays open.
func (h *DBHandler) Close() error {
	h.open = false
	return nil
}

// Read loads the session and copies its Remember and Strict flags into st.
func (h *DBHandler) Read(ctx context.Context, st *State, id string) (string, error) {
	name, err := h.check(st, id)
	if err != nil {
		return "", err
	}

	rows, err := h.conn.Select(ctx,
		"SELECT Id, Name, Data, Remember, Strict, RemoteAddr FROM "+h.table+" WHERE Name = :name AND Id = :id",
		dbal.FetchNum,
		dbal.Named{"name": name, "id": id},
	)
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	row, ok := rows[0].([]any)
	if !ok || len(row) < 5 {
		return "", fmt.Errorf("reading session: unexpected row %v", rows[0])
	}
	st.Remember = truthy(row[3])
	st.Strict = truthy(row[4])
	return text(row[2]), nil
}

// Write inserts or updates the session inside a transaction.
// Failures are returned to the caller and are not logged by the connection.
func (h *DBHandler) Write(ctx context.Context, st *State, id, data string) error {
	name, err := h.check(st, id)
	if err != nil {
		return err
	}

	restore := h.silence()
	defer restore()

	params := dbal.Named{
		"id":       id,
		"name":     name,
		"data":     data,
		"remember": boolInt(st.Remember),
		"strict":   boolInt(st.Strict),
		"remote":   nullable(st.RemoteAddr),
	}

	err = h.conn.Transact(ctx, func() error {
		exists, err := h.exists(ctx, name, id)
		if err != nil {
			return err
		}
		if exists {
			_, err = h.conn.Exec(ctx,
				"UPDATE "+h.table+" SET Data = :data, Remember = :remember, Strict = :strict, RemoteAddr = :remote"+
					" WHERE Id = :id AND Name = :name",
				params,
			)
			return err
		}
		params["started"] = h.now().UTC().Format(startedLayout)
		_, err = h.conn.Exec(ctx,
			"INSERT INTO "+h.table+" (Id, Name, Data, Remember, Strict, RemoteAddr, Started)"+
				" VALUES (:id, :name, :data, :remember, :strict, :remote, :started)",
			params,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// exists selects the session and uses the statement's row count.
func (h *DBHandler) exists(ctx context.Context, name, id string) (bool, error) {
	stmt, err := h.conn.Prepare(ctx, "SELECT Id FROM "+h.table+" WHERE Name = :name AND Id = :id")
	if err != nil {
		return false, err
	}
	defer stmt.Close() //nolint:errcheck // row count already read

	if err := stmt.Execute(ctx, dbal.Named{"name": name, "id": id}); err != nil {
		return false, err
	}
	return stmt.RowCount() > 0, nil
}

// Destroy deletes the session.
func (h *DBHandler) Destroy(ctx context.Context, st *State, id string) error {
	name, err := h.check(st, id)
	if err != nil {
		return err
	}
	if _, err := h.conn.Exec(ctx,
		"DELETE FROM "+h.table+" WHERE Name = :name AND Id = :id",
		dbal.Named{"name": name, "id": id},
	); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// GC deletes sessions started before now-maxLifetime that are not remembered.
func (h *DBHandler) GC(ctx context.Context, maxLifetime time.Duration) (int64, error) {
	if !h.open {
		return 0, ErrNotOpen
	}
	cutoff := h.now().Add(-maxLifetime).UTC().Format(startedLayout)
	n, err := h.conn.Exec(ctx,
		"DELETE FROM "+h.table+" WHERE Started < :cutoff AND Remember = 0",
		dbal.Named{"cutoff": cutoff},
	)
	if err != nil {
		return 0, fmt.Errorf("collecting sessions: %w", err)
	}
	return n, nil
}

func (h *DBHandler) check(st *State, id string) (string, error) {
	if !h.open {
		return "", ErrNotOpen
	}
	if !ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if st.Name != "" {
		return st.Name, nil
	}
	return h.name, nil
}

// silence switches the connection to ErrModeSilent and returns a func that
// restores the previous mode.
func (h *DBHandler) silence() func() {
	prev, had := h.conn.GetAttribute(dbal.AttrErrMode)
	h.conn.SetAttribute(dbal.AttrErrMode, dbal.ErrModeSilent)
	return func() {
		if had {
			h.conn.SetAttribute(dbal.AttrErrMode, prev)
			return
		}
		h.conn.SetAttribute(dbal.AttrErrMode, dbal.ErrModeException)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// truthy interprets a stored flag column, whatever type the backend returned.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return err == nil && n != 0
	case []byte:
		return truthy(string(t))
	}
	return false
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}

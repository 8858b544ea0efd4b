// Package session persists web session data through pluggable handlers.
//
// Two handlers are provided:
//   - DBHandler stores sessions in a table through a dbal.Conn, so it works
//     on every registered backend
//   - FileHandler stores one file per session in a directory
//
// Per-session state (name, remember and strict flags, remote address) is
// passed explicitly as a *State on every call; handlers hold no per-request
// state.
//
// Usage:
//
//	h, err := session.NewDBHandler(conn, "sessions")
//	if err != nil {
//	    return err
//	}
//	h.Open("", "GRAYDBSESSID")
//
//	st := &session.State{RemoteAddr: r.RemoteAddr}
//	id := session.NewID()
//	if err := h.Write(ctx, st, id, payload); err != nil {
//	    return err
//	}
//
// Garbage Collection:
//
// GC removes sessions older than the given lifetime unless Remember is set.
// The database handler ages sessions by their start time; the file handler
// by file modification time.
package session

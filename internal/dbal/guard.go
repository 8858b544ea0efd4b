package dbal

import "sync"

// Guard serialises access to a Conn shared between goroutines.
type Guard struct {
	mu   sync.Mutex
	conn *Conn
}

// NewGuard wraps conn.
func NewGuard(conn *Conn) *Guard {
	return &Guard{conn: conn}
}

// Do runs fn with exclusive use of the connection.
func (g *Guard) Do(fn func(*Conn) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.conn)
}

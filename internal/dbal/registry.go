package dbal

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory constructs an unconnected driver for cfg. The attribute store is
// already populated with the caller's initial attributes.
type Factory func(cfg Config, attrs *Attributes) (Driver, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a driver factory available under name.
// It panics if name is registered twice or factory is nil.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if factory == nil {
		panic("dbal: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("dbal: Register called twice for driver " + name)
	}
	factories[name] = factory
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open constructs the driver registered under name, applies the initial
// attributes and connects.
//
// Attributes outside the enumeration are skipped and reported through the
// logger given WithLogger; they never fail Open.
func Open(ctx context.Context, name string, cfg Config, attrs map[Attribute]any, opts ...Option) (*Conn, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}

	if cfg.Driver == "" {
		cfg.Driver = name
	}

	probe := NewConn(nil, opts...)

	store := NewAttributes()
	for key, value := range attrs {
		if !store.Set(key, value) && probe.logger != nil {
			probe.logger.Warn("attribute rejected", "driver", name, "attribute", key.String())
		}
	}
	store.Set(AttrDriverName, name)

	d, err := factory(cfg, store)
	if err != nil {
		return nil, err
	}

	conn := NewConn(d, opts...)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

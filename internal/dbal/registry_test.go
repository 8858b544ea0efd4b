package dbal

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

var registerOnce sync.Once

func registerFake() {
	registerOnce.Do(func() {
		Register("fake", func(_ Config, attrs *Attributes) (Driver, error) {
			d := newFakeDriver()
			d.attrs = attrs
			return d, nil
		})
	})
}

func TestOpen(t *testing.T) {
	registerFake()
	logger := &recordingLogger{}

	conn, err := Open(context.Background(), "fake", Config{},
		map[Attribute]any{
			AttrErrMode:  ErrModeSilent,
			Attribute(0): "ignored",
		},
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close() //nolint:errcheck // Test cleanup

	if !conn.Connected() {
		t.Error("Connected() = false after Open")
	}
	if v, _ := conn.GetAttribute(AttrErrMode); v != ErrModeSilent {
		t.Errorf("errmode = %v, want silent", v)
	}
	if v, _ := conn.GetAttribute(AttrDriverName); v != "fake" {
		t.Errorf("driver_name = %v, want fake", v)
	}
	if len(logger.warns) != 1 {
		t.Errorf("rejected attribute warnings = %d, want 1", len(logger.warns))
	}
	if !slices.Contains(Drivers(), "fake") {
		t.Errorf("Drivers() = %v, missing fake", Drivers())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "nope", Config{}, nil)
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Open() error = %v, want ErrUnknownDriver", err)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	registerFake()
	defer func() {
		if recover() == nil {
			t.Error("Register() twice did not panic")
		}
	}()
	Register("fake", func(Config, *Attributes) (Driver, error) { return nil, nil })
}

func TestGuardSerialises(t *testing.T) {
	g := NewGuard(NewConn(connectedFake()))

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do(func(*Conn) error { //nolint:errcheck // fn never fails
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

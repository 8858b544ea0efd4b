package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/graydb/internal/dbal"
	"github.com/nerrad567/graydb/internal/infrastructure/mqtt"
)

// defaultQueueSize bounds events waiting to be published.
const defaultQueueSize = 256

// Publisher is the MQTT surface the event publisher needs.
// Satisfied by *mqtt.Client.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Warner receives publish failures.
type Warner interface {
	Warn(msg string, args ...any)
}

// MQTTPublisher publishes events to graydb/<driver>/events from a single
// background goroutine. Observe never blocks: when the queue is full the
// event is dropped and counted.
type MQTTPublisher struct {
	pub     Publisher
	logger  Warner
	now     func() time.Time
	queue   chan dbal.Event
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewMQTTPublisher starts the publishing goroutine. logger may be nil.
// Call Close to drain the queue and stop it.
func NewMQTTPublisher(pub Publisher, logger Warner, queueSize int) *MQTTPublisher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &MQTTPublisher{
		pub:    pub,
		logger: logger,
		now:    time.Now,
		queue:  make(chan dbal.Event, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Observe queues e for publishing.
func (p *MQTTPublisher) Observe(e dbal.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (p *MQTTPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be published.
func (p *MQTTPublisher) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	<-p.done
}

func (p *MQTTPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		topic := mqtt.Topics{}.Events(e.Driver)
		if err := p.pub.PublishJSON(topic, NewMessage(e, p.now())); err != nil && p.logger != nil {
			p.logger.Warn("publishing database event failed", "topic", topic, "error", err)
		}
	}
}

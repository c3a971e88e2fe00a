package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/shipment-legs/internal/api/metrics"
	"github.com/99minutos/shipment-legs/internal/core/domain"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Sink is the destination of committed leg events (Kafka or the Mongo journal).
type Sink interface {
	Deliver(ctx context.Context, ev domain.LegEvent) error
}

// Dispatcher routes leg events to a fixed set of workers using consistent
// hashing on the partition key, preserving per-order event ordering. It
// implements ports.EventPublisher.
type Dispatcher struct {
	workers []chan domain.LegEvent
	sink    Sink
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink Sink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LegEvent, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LegEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. ctx is used for deliveries.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop closes the queues and waits until the workers have drained them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Publish enqueues ev on the worker owning its partition key. It never
// blocks: when the queue is full the event is dropped and counted.
func (d *Dispatcher) Publish(_ context.Context, ev domain.LegEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.EventsDroppedTotal.Inc()
		return
	}

	idx := d.shardIndex(ev.PartitionKey())
	select {
	case d.workers[idx] <- ev:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.EventsDroppedTotal.Inc()
		d.log.Warn().
			Str("type", ev.Type).
			Str("order_id", ev.OrderID).
			Str("leg_id", ev.LegID).
			Msg("event queue full, dropping event")
	}
}

// shardIndex maps a partition key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LegEvent) {
	defer d.wg.Done()
	depth := metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(id))
	for ev := range ch {
		depth.Dec()
		if err := d.sink.Deliver(ctx, ev); err != nil {
			metrics.EventsDeliveredTotal.WithLabelValues(ev.Type, "error").Inc()
			d.log.Error().Err(err).
				Str("type", ev.Type).
				Str("order_id", ev.OrderID).
				Str("leg_id", ev.LegID).
				Int("worker_id", id).
				Msg("event delivery failed")
			continue
		}
		metrics.EventsDeliveredTotal.WithLabelValues(ev.Type, "ok").Inc()
	}
}

package ledger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Mode selects where a subscription starts reading the ledger.
type Mode string

const (
	// ModeTail starts at the current end of the ledger and delivers only
	// future entries.
	ModeTail Mode = "tail"

	// ModeReplay starts at offset 0, delivers every existing entry, then
	// continues live.
	ModeReplay Mode = "replay"
)

// EventName tags every delivered stream item.
const EventName = "violation"

// StreamEvent is one delivered item: a single ledger record tagged with the
// fixed event name.
type StreamEvent struct {
	Event string
	Data  []byte
}

// MarshalSSE renders the item as a server-sent event frame, so a transport
// collaborator can forward delivered items verbatim.
func (e StreamEvent) MarshalSSE() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", e.Event)
	fmt.Fprintf(&buf, "data: %s\n\n", e.Data)
	return buf.Bytes()
}

// DistributorConfig contains configuration for the live distributor.
type DistributorConfig struct {
	// PollInterval is how often each subscription checks the ledger size.
	// Default: 1 second.
	PollInterval time.Duration

	// Buffer is the per-subscription channel capacity. Default: 64.
	Buffer int
}

// DefaultDistributorConfig returns the default distributor configuration.
func DefaultDistributorConfig() *DistributorConfig {
	return &DistributorConfig{
		PollInterval: time.Second,
		Buffer:       64,
	}
}

// Distributor streams newly appended ledger entries to any number of
// independent subscribers with at-least-once delivery. Each subscription
// holds its own byte-offset watermark and polls the ledger size; a slow or
// disconnected subscriber stalls only its own loop, never the ledger writer
// or other subscribers.
type Distributor struct {
	ledger *Ledger
	config *DistributorConfig
	logger *slog.Logger

	mu    sync.Mutex
	count int
}

// NewDistributor creates a distributor over the given ledger.
func NewDistributor(ledger *Ledger, config *DistributorConfig) *Distributor {
	if config == nil {
		config = DefaultDistributorConfig()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.Buffer <= 0 {
		config.Buffer = 64
	}
	return &Distributor{
		ledger: ledger,
		config: config,
		logger: slog.Default().With("component", "ledger.distributor"),
	}
}

// Subscription delivers ledger entries on C until its context is cancelled,
// after which C is closed and the subscription's state is freed.
type Subscription struct {
	// C carries one StreamEvent per appended ledger line.
	C <-chan StreamEvent
}

// Subscribers returns the number of live subscriptions.
func (d *Distributor) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Subscribe starts a subscription in the given mode. The caller owns ctx;
// cancelling it ends the subscription. Delivery is at-least-once: entries
// appended while the subscriber is live are each delivered exactly once per
// subscriber, in ledger order.
func (d *Distributor) Subscribe(ctx context.Context, mode Mode) (*Subscription, error) {
	var watermark int64
	if mode == ModeTail {
		size, err := d.ledger.Size()
		if err != nil {
			return nil, err
		}
		watermark = size
	} else if mode != ModeReplay {
		return nil, fmt.Errorf("unknown subscription mode %q", mode)
	}

	ch := make(chan StreamEvent, d.config.Buffer)

	d.mu.Lock()
	d.count++
	d.mu.Unlock()

	d.logger.Info("subscriber attached",
		"mode", string(mode),
		"watermark", watermark,
	)

	go d.run(ctx, ch, watermark)

	return &Subscription{C: ch}, nil
}

// run is the per-subscriber polling loop.
func (d *Distributor) run(ctx context.Context, ch chan<- StreamEvent, watermark int64) {
	defer func() {
		close(ch)
		d.mu.Lock()
		d.count--
		d.mu.Unlock()
		d.logger.Info("subscriber detached")
	}()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		size, err := d.ledger.Size()
		if err != nil {
			d.logger.Error("ledger size check failed", "error", err)
			continue
		}
		if size <= watermark {
			continue
		}

		// Read exactly the newly appended byte range. Appends are
		// line-atomic, so the range ends on a record boundary.
		data, newOffset, err := d.ledger.ReadFrom(watermark)
		if err != nil {
			d.logger.Error("ledger tail read failed", "error", err)
			continue
		}

		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}
			item := StreamEvent{Event: EventName, Data: line}
			select {
			case ch <- item:
			case <-ctx.Done():
				// Subscriber gone; drop the rest and free state.
				return
			}
		}

		watermark = newOffset
	}
}

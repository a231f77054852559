package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/lastmove/chatrelay/telemetry"
)

// Sender forwards one rendered notification. Implemented by relay.Client.
type Sender interface {
	Send(ctx context.Context, title, body, attachURL string) error
}

// Dispatcher is the single consumer of the outbound queue. It is the one
// place that enforces send cadence and message-size policy; producers never
// talk to the relay directly.
type Dispatcher struct {
	queue      *Queue
	sender     Sender
	limiter    *rate.Limiter
	cooldown   time.Duration
	partDelay  time.Duration
	chunkLimit int
}

// NewDispatcher wires a dispatcher to its queue and sink. cooldown is the
// minimum interval between consecutive items, partDelay the smaller delay
// between chunks of one oversized item, chunkLimit the maximum body length
// per send.
func NewDispatcher(queue *Queue, sender Sender, cooldown, partDelay time.Duration, chunkLimit int) *Dispatcher {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	if partDelay <= 0 {
		partDelay = time.Second
	}
	if chunkLimit <= 0 {
		chunkLimit = 200
	}
	return &Dispatcher{
		queue:      queue,
		sender:     sender,
		limiter:    rate.NewLimiter(rate.Every(cooldown), 1),
		cooldown:   cooldown,
		partDelay:  partDelay,
		chunkLimit: chunkLimit,
	}
}

// Run drains the queue until ctx is canceled. Send failures are logged and
// never stop the loop; the cadence advances on every attempted send.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("dispatcher started",
		slog.Duration("cooldown", d.cooldown),
		slog.Duration("part_delay", d.partDelay),
		slog.Int("chunk_limit", d.chunkLimit))
	for {
		item, ok := d.queue.Dequeue(ctx)
		if !ok {
			slog.Info("dispatcher stopped")
			return
		}
		if err := d.limiter.Wait(ctx); err != nil {
			slog.Info("dispatcher stopped")
			return
		}
		d.dispatch(ctx, item)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, item OutboundItem) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline", "dispatch",
		attribute.String("title", item.Title))
	defer span.End()

	body := item.Author + ": " + item.Text
	if len(body) <= d.chunkLimit {
		telemetry.RecordError(span, d.send(ctx, item.Title, body, item.AttachURL))
		return
	}

	parts := SplitChunks(body, d.chunkLimit)
	for i, part := range parts {
		if i > 0 {
			t := time.NewTimer(d.partDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		attach := ""
		if i == 0 {
			attach = item.AttachURL
		}
		title := fmt.Sprintf("%s [%d/%d]", item.Title, i+1, len(parts))
		telemetry.RecordError(span, d.send(ctx, title, part, attach))
	}
}

func (d *Dispatcher) send(ctx context.Context, title, body, attachURL string) error {
	start := time.Now()
	err := d.sender.Send(ctx, title, body, attachURL)
	telemetry.ObserveSend(time.Since(start), err == nil)
	if err != nil {
		// Item is not re-enqueued; the relay has no retry protocol.
		slog.Warn("relay send failed", slog.String("title", title), slog.Any("err", err))
		return err
	}
	slog.Debug("relay send ok", slog.String("title", title), slog.Int("len", len(body)))
	return nil
}

// SplitChunks breaks body into parts no longer than limit, splitting only at
// word boundaries. Whitespace runs collapse to single spaces, so joining the
// parts with single spaces reconstructs the normalized text. Words longer
// than limit are hard-split.
func SplitChunks(body string, limit int) []string {
	if limit <= 0 || len(body) <= limit {
		return []string{body}
	}
	words := strings.Fields(body)
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, w := range words {
		for len(w) > limit {
			flush()
			// Back the cut off to a rune boundary so multi-byte text is never
			// split mid-rune.
			cut := limit
			for cut > 0 && !utf8.RuneStart(w[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			parts = append(parts, w[:cut])
			w = w[cut:]
		}
		if w == "" {
			continue
		}
		need := len(w)
		if cur.Len() > 0 {
			need += 1
		}
		if cur.Len()+need > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	flush()
	if len(parts) == 0 {
		parts = []string{""}
	}
	return parts
}

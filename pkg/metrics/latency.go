package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-clawd/pkg/assistant"
)

// TurnLatency is the time spent in each stage of one turn.
type TurnLatency struct {
	Listen time.Duration // capture plus recognition
	Chat   time.Duration // memory load, generation, memory save
	Speak  time.Duration // synthesis plus playback
	Total  time.Duration

	Outcome assistant.Outcome
	Started time.Time
}

// FormatLatency returns a one-line breakdown such as
// "4.1s LISTEN | 1.2s CHAT | 3.4s SPEAK | 8.7s TOTAL".
func (t *TurnLatency) FormatLatency() string {
	return formatDuration(t.Listen) + " LISTEN | " +
		formatDuration(t.Chat) + " CHAT | " +
		formatDuration(t.Speak) + " SPEAK | " +
		formatDuration(t.Total) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}

const historySize = 100

// LatencyCollector assembles per-turn latency from assistant events and
// keeps the last 100 answered turns for averaging.
type LatencyCollector struct {
	mu      sync.Mutex
	current TurnLatency
	history []TurnLatency
	logger  *slog.Logger

	onTurn func(TurnLatency)
}

// NewLatencyCollector creates a collector. A non-nil logger gets one line
// per answered turn.
func NewLatencyCollector(logger *slog.Logger) *LatencyCollector {
	c := &LatencyCollector{history: make([]TurnLatency, 0, historySize)}
	if logger != nil {
		c.logger = logger.With("component", "metrics.latency")
	}
	return c
}

// OnTurn sets a callback that fires when a turn completes.
func (c *LatencyCollector) OnTurn(fn func(TurnLatency)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTurn = fn
}

// Observe records an assistant event.
func (c *LatencyCollector) Observe(e assistant.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Kind {
	case assistant.KindListen:
		c.current = TurnLatency{Listen: e.Latency, Started: e.Time.Add(-e.Latency)}
	case assistant.KindChat:
		c.current.Chat = e.Latency
	case assistant.KindSpeak:
		c.current.Speak = e.Latency
	case assistant.KindTurn:
		c.current.Total = e.Latency
		c.current.Outcome = e.Outcome
		if e.Outcome == assistant.OutcomeEmpty {
			return
		}
		c.history = append(c.history, c.current)
		if len(c.history) > historySize {
			c.history = c.history[1:]
		}
		if c.logger != nil {
			c.logger.Info("turn latency", "breakdown", c.current.FormatLatency(), "outcome", e.Outcome)
		}
		if c.onTurn != nil {
			go c.onTurn(c.current)
		}
	}
}

// Last returns the most recent answered turn.
func (c *LatencyCollector) Last() (TurnLatency, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return TurnLatency{}, false
	}
	return c.history[len(c.history)-1], true
}

// Average returns mean stage latencies over recent answered turns.
func (c *LatencyCollector) Average() TurnLatency {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) == 0 {
		return TurnLatency{}
	}

	var avg TurnLatency
	for _, h := range c.history {
		avg.Listen += h.Listen
		avg.Chat += h.Chat
		avg.Speak += h.Speak
		avg.Total += h.Total
	}

	n := time.Duration(len(c.history))
	avg.Listen /= n
	avg.Chat /= n
	avg.Speak /= n
	avg.Total /= n
	return avg
}

var _ assistant.Observer = (*LatencyCollector)(nil)

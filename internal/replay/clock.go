// Package replay implements the clock that drives a bar-replay session: an
// explicit state machine (idle, playing, paused, finished) over a cursor
// into the bar series, advanced either manually or by a recurring timer.
package replay

import (
	"fmt"
	"sync"
	"time"

	"barreplay/internal/domain"
	"barreplay/internal/ports"
)

// Advance describes one cursor movement, delivered to the OnAdvance
// callback.
type Advance struct {
	Cursor   int
	Finished bool // Cursor reached the final bar while playing
	Manual   bool // Advance came from Step, not the timer
}

// Clock advances a cursor over a bar series of fixed length. All state
// transitions are guarded by one mutex; the timer goroutine checks a play
// generation under that mutex before mutating the cursor, so Pause and Seek
// are synchronous: once they return, a fired-but-stale timer tick can no
// longer advance anything. A tick that already advanced the cursor before
// Pause acquired the lock still completes its OnAdvance delivery; that
// advance happened before the pause.
type Clock struct {
	mu       sync.Mutex
	length   int
	cursor   int
	status   domain.ReplayStatus
	speed    int
	interval time.Duration
	gen      uint64 // Incremented whenever playback must stop or restart

	// OnAdvance is invoked synchronously (outside the clock mutex) for
	// every cursor advance, timer-driven or manual. It is the sole trigger
	// for exit evaluation downstream.
	onAdvance func(Advance)
}

// Config holds construction parameters for the clock.
type Config struct {
	Length    int           // Number of bars in the series
	Interval  time.Duration // Timer tick interval
	Speed     int           // Bars advanced per tick
	OnAdvance func(Advance)
}

// NewClock creates a clock in the Idle state with the cursor at 0.
func NewClock(cfg Config) (*Clock, error) {
	if cfg.Length < 0 {
		return nil, fmt.Errorf("length must not be negative: %w", ports.ErrValidation)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive: %w", ports.ErrValidation)
	}
	if cfg.Speed <= 0 {
		return nil, fmt.Errorf("speed multiplier must be positive: %w", ports.ErrValidation)
	}
	return &Clock{
		length:    cfg.Length,
		status:    domain.ReplayIdle,
		speed:     cfg.Speed,
		interval:  cfg.Interval,
		onAdvance: cfg.OnAdvance,
	}, nil
}

// Play starts timer-driven playback. No-op when already playing or
// finished; returns ErrEmptySeries when there are no bars.
func (c *Clock) Play() error {
	c.mu.Lock()
	if c.length == 0 {
		c.mu.Unlock()
		return fmt.Errorf("cannot play: %w", ports.ErrEmptySeries)
	}
	if c.status == domain.ReplayPlaying || c.status == domain.ReplayFinished {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.status = domain.ReplayPlaying
	interval := c.interval
	c.mu.Unlock()

	go c.run(gen, interval)
	return nil
}

// run is the timer loop for one play generation. It exits as soon as the
// generation goes stale (pause, seek, fresh play) or the series finishes.
func (c *Clock) run(gen uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		adv, ok := c.tickAdvance(gen)
		if !ok {
			return
		}
		if c.onAdvance != nil {
			c.onAdvance(adv)
		}
		if adv.Finished {
			return
		}
	}
}

// tickAdvance applies one timer tick. Returns false when the tick is stale
// and must be discarded without touching state.
func (c *Clock) tickAdvance(gen uint64) (Advance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.status != domain.ReplayPlaying {
		return Advance{}, false
	}
	c.cursor += c.speed
	if c.cursor >= c.length-1 {
		c.cursor = c.length - 1
		c.status = domain.ReplayFinished
		c.gen++
	}
	return Advance{Cursor: c.cursor, Finished: c.status == domain.ReplayFinished}, true
}

// Pause stops timer-driven playback. After Pause returns, no further tick
// can mutate the cursor, even one whose timer already fired.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == domain.ReplayPlaying {
		c.status = domain.ReplayPaused
		c.gen++
	}
}

// Step advances (or rewinds, for negative n) the cursor by n bars, clamped
// to the series bounds. Playing/Paused state is unchanged unless the final
// bar is reached while playing, which finishes playback and stops the
// timer. Rewinding off the final bar leaves the Finished state for Paused,
// so Play can resume; Finished always means the cursor sits on the final
// bar. Every effective step emits an advance.
func (c *Clock) Step(n int) error {
	c.mu.Lock()
	if c.length == 0 {
		c.mu.Unlock()
		return fmt.Errorf("cannot step: %w", ports.ErrEmptySeries)
	}
	c.cursor += n
	if c.cursor < 0 {
		c.cursor = 0
	}
	if c.cursor > c.length-1 {
		c.cursor = c.length - 1
	}
	if c.status == domain.ReplayPlaying && c.cursor == c.length-1 {
		c.status = domain.ReplayFinished
		c.gen++
	}
	if c.status == domain.ReplayFinished && c.cursor < c.length-1 {
		c.status = domain.ReplayPaused
	}
	adv := Advance{Cursor: c.cursor, Finished: c.status == domain.ReplayFinished, Manual: true}
	c.mu.Unlock()

	if c.onAdvance != nil {
		c.onAdvance(adv)
	}
	return nil
}

// Seek sets the cursor directly (scrub/slider, "start from this bar") and
// always forces Paused: resuming from an arbitrary point must be an
// explicit user action. Seek emits no advance and therefore triggers no
// exit evaluation.
func (c *Clock) Seek(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index > c.length-1 {
		return fmt.Errorf("seek index %d out of range [0,%d): %w", index, c.length, ports.ErrValidation)
	}
	c.cursor = index
	c.status = domain.ReplayPaused
	c.gen++
	return nil
}

// SetSpeed changes how many bars each timer tick advances. Takes effect on
// the next tick.
func (c *Clock) SetSpeed(n int) error {
	if n <= 0 {
		return fmt.Errorf("speed multiplier must be positive, got %d: %w", n, ports.ErrValidation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = n
	return nil
}

// Cursor returns the current cursor position.
func (c *Clock) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Status returns the current playback state.
func (c *Clock) Status() domain.ReplayStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// State returns the full replay state for observers and serialization.
func (c *Clock) State() domain.ReplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.ReplayState{
		Cursor:       c.cursor,
		Status:       c.status,
		Speed:        c.speed,
		IntervalMS:   c.interval.Milliseconds(),
		SeriesLength: c.length,
	}
}

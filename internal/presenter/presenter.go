// Package presenter drives the progressive disclosure of a prediction result
// and keeps the rolling confidence history.
package presenter

import (
	"context"
	"sync"
	"time"

	"github.com/Skufu/NutriPredict/internal/prediction"
	"github.com/Skufu/NutriPredict/internal/timeutil"
)

const (
	DefaultRevealInterval = 700 * time.Millisecond
	historyLabelLayout    = "15:04:05"
)

type State string

const (
	StateIdle      State = "idle"
	StateRevealing State = "revealing"
	StateComplete  State = "complete"
)

// Snapshot is the displayable presenter state.
type Snapshot struct {
	State    State              `json:"state"`
	Revealed []string           `json:"revealed"`
	Total    int                `json:"total"`
	Result   *prediction.Result `json:"result,omitempty"`
	History  []HistoryEntry     `json:"history"`
}

// Presenter reveals one recommendation per interval, in order. Every result
// gets its own cancellable batch so a newer result or session teardown stops
// the older reveals atomically.
type Presenter struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	interval time.Duration

	state    State
	result   *prediction.Result
	revealed []string
	history  *History

	batch  *revealBatch
	closed bool

	// completions counts transitions into StateComplete, for tests.
	completions int
}

type revealBatch struct {
	ctx    context.Context
	cancel context.CancelFunc
	timer  timeutil.Timer
}

func New(clock timeutil.Clock, interval time.Duration) *Presenter {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultRevealInterval
	}
	return &Presenter{
		clock:    clock,
		interval: interval,
		state:    StateIdle,
		revealed: []string{},
		history:  NewHistory(HistoryLimit),
	}
}

// Present starts disclosing result and records its confidence in the
// history. Index i becomes visible i intervals after the call.
func (p *Presenter) Present(result *prediction.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.cancelLocked()

	p.result = result
	p.revealed = []string{}
	p.state = StateRevealing

	p.history.Append(HistoryEntry{
		Label:      p.clock.Now().Format(historyLabelLayout),
		Confidence: result.Confidence,
	})

	if len(result.Recommendations) == 0 {
		p.completeLocked()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &revealBatch{ctx: ctx, cancel: cancel}
	p.batch = b
	p.scheduleLocked(b, 0, 0)
}

// Clear cancels pending reveals and hides the current result. History is
// kept.
func (p *Presenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	p.result = nil
	p.revealed = []string{}
	p.state = StateIdle
}

// Close cancels pending reveals for good; later calls to Present are
// ignored.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	p.closed = true
}

func (p *Presenter) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		State:    p.state,
		Revealed: append([]string{}, p.revealed...),
		Result:   p.result,
		History:  p.history.Entries(),
	}
	if p.result != nil {
		s.Total = len(p.result.Recommendations)
	}
	return s
}

func (p *Presenter) scheduleLocked(b *revealBatch, index int, delay time.Duration) {
	b.timer = p.clock.AfterFunc(delay, func() {
		p.reveal(b, index)
	})
}

func (p *Presenter) reveal(b *revealBatch, index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b.ctx.Err() != nil || p.batch != b || index != len(p.revealed) {
		return
	}

	recs := p.result.Recommendations
	p.revealed = append(p.revealed, recs[index])

	if index == len(recs)-1 {
		b.cancel()
		p.batch = nil
		p.completeLocked()
		return
	}
	p.scheduleLocked(b, index+1, p.interval)
}

func (p *Presenter) completeLocked() {
	p.state = StateComplete
	p.completions++
}

func (p *Presenter) cancelLocked() {
	if p.batch == nil {
		return
	}
	p.batch.cancel()
	if p.batch.timer != nil {
		p.batch.timer.Stop()
	}
	p.batch = nil
}

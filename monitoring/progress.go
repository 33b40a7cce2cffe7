package monitoring

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sarchlab/alpidesim/sim"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64

	logger     *slog.Logger
	loggedStep uint64
}

// ProgressBarStatus is a snapshot of a ProgressBar.
type ProgressBarStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// NewProgressBar creates a progress bar that starts now.
func NewProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// WithLogger makes the bar log a line every time another 10 % is finished.
func (b *ProgressBar) WithLogger(logger *slog.Logger) *ProgressBar {
	b.logger = logger
	return b
}

// Status returns a copy of the counters.
func (b *ProgressBar) Status() ProgressBarStatus {
	b.Lock()
	defer b.Unlock()

	return ProgressBarStatus{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// Percent returns the finished share, from 0 to 100.
func (b *ProgressBar) Percent() float64 {
	b.Lock()
	defer b.Unlock()

	return b.percent()
}

func (b *ProgressBar) percent() float64 {
	if b.Total == 0 {
		return 0
	}

	return 100 * float64(b.Finished) / float64(b.Total)
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
	b.logProgress()
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
	b.logProgress()
}

func (b *ProgressBar) logProgress() {
	if b.logger == nil || b.Total == 0 {
		return
	}

	step := b.Finished * 10 / b.Total
	if step <= b.loggedStep {
		return
	}

	b.loggedStep = step
	b.logger.Info(fmt.Sprintf("%s: %d/%d (%.0f%%)",
		b.Name, b.Finished, b.Total, b.percent()),
		"elapsed", time.Since(b.StartTime).Round(time.Millisecond).String())
}

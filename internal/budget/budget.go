package budget

import (
	"sync"
	"time"

	"github.com/bowerhall/faqdesk/internal/assistant"
)

// Tracker counts assistant tokens per calendar day. A zero DailyLimit
// disables enforcement but usage is still recorded.
type Tracker struct {
	mu         sync.Mutex
	dailyLimit int
	warnAt     float64
	today      Summary
	lastReset  time.Time
	onWarn     func(used, limit int)
	onExceeded func(used, limit int)
	warnSent   bool
	timezone   *time.Location
	now        func() time.Time
}

type Config struct {
	DailyLimit int
	WarnAt     float64
	Timezone   *time.Location
}

// Summary is the usage accumulated since the last daily reset.
type Summary struct {
	Runs             int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
}

func NewTracker(cfg Config, onWarn, onExceeded func(used, limit int)) *Tracker {
	tz := cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}

	warnAt := cfg.WarnAt
	if warnAt <= 0 || warnAt > 1 {
		warnAt = 0.8
	}

	t := &Tracker{
		dailyLimit: cfg.DailyLimit,
		warnAt:     warnAt,
		onWarn:     onWarn,
		onExceeded: onExceeded,
		timezone:   tz,
		now:        time.Now,
	}
	t.lastReset = t.now().In(tz)

	return t
}

// Allowed reports whether the daily limit still has room.
func (t *Tracker) Allowed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	return t.dailyLimit <= 0 || t.today.TotalTokens < t.dailyLimit
}

// Record adds the usage of one finished run and reports whether the limit
// still has room afterwards.
func (t *Tracker) Record(model string, usage assistant.Usage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	t.today.Runs++
	t.today.PromptTokens += usage.PromptTokens
	t.today.CompletionTokens += usage.CompletionTokens
	t.today.TotalTokens += usage.TotalTokens
	t.today.CostUSD += CalculateCost(model, usage.PromptTokens, usage.CompletionTokens)

	return t.evaluate()
}

func (t *Tracker) Usage() (used, limit int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	return t.today.TotalTokens, t.dailyLimit
}

func (t *Tracker) Today() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkReset()
	return t.today
}

// must hold lock
func (t *Tracker) evaluate() bool {
	if t.dailyLimit <= 0 {
		return true
	}

	if t.today.TotalTokens >= t.dailyLimit {
		if t.onExceeded != nil {
			t.onExceeded(t.today.TotalTokens, t.dailyLimit)
		}

		return false
	}

	if !t.warnSent && float64(t.today.TotalTokens) >= float64(t.dailyLimit)*t.warnAt {
		t.warnSent = true

		if t.onWarn != nil {
			t.onWarn(t.today.TotalTokens, t.dailyLimit)
		}
	}

	return true
}

// must hold lock
func (t *Tracker) checkReset() {
	now := t.now().In(t.timezone)
	if now.YearDay() != t.lastReset.YearDay() || now.Year() != t.lastReset.Year() {
		t.today = Summary{}
		t.warnSent = false
		t.lastReset = now
	}
}

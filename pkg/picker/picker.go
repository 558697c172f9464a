// Package picker holds headless multi-select models for the admin forms. A Picker turns
// focus, input and key events plus debounced search results into a value list and a
// suggestion list; rendering is left to the caller.
package picker

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Item is one selectable entity.
type Item struct {
	ID    string
	Label string
}

// Key is a keyboard event the picker reacts to.
type Key int

const (
	KeyArrowDown Key = iota
	KeyArrowUp
	KeyEnter
	KeyEscape
	KeyBackspace
)

// SearchFunc fetches the results for a term.
type SearchFunc func(ctx context.Context, term string) ([]Item, error)

// Timer is a pending debounce.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Config describes one picker variant.
type Config struct {
	Debounce    time.Duration
	AllowCreate bool
	Search      SearchFunc
	OnChange    func([]Item)
	AfterFunc   AfterFunc
}

// Picker is safe for concurrent use; search callbacks arrive on timer goroutines.
type Picker struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	value     []Item
	input     string
	term      string
	results   []Item
	highlight int
	open      bool
	live      bool
	closed    bool
	timer     Timer
	seq       int
	err       error
}

// New creates a picker holding value.
func New(cfg Config, value []Item) *Picker {
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = realAfterFunc
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Picker{cfg: cfg, ctx: ctx, cancel: cancel, value: append([]Item(nil), value...), highlight: -1}
}

// Focus makes the search live and schedules a search for the current input.
func (p *Picker) Focus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.live = true
	p.open = true
	p.schedule()
}

// SetInput replaces the input text. The pending search is cancelled and rescheduled.
func (p *Picker) SetInput(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.live = true
	p.open = true
	p.input = s
	p.term = strings.TrimSpace(s)
	p.highlight = -1
	p.schedule()
}

// schedule restarts the debounce timer. Callers hold p.mu.
func (p *Picker) schedule() {
	p.stopTimer()
	if !p.live || p.cfg.Search == nil {
		return
	}
	p.seq++
	seq, term := p.seq, p.term
	p.timer = p.cfg.AfterFunc(p.cfg.Debounce, func() { p.run(seq, term) })
}

func (p *Picker) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// run executes one debounced search and drops its results when they are stale.
func (p *Picker) run(seq int, term string) {
	results, err := p.cfg.Search(p.ctx, term)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || seq != p.seq {
		return
	}
	p.timer = nil
	p.err = err
	if err != nil {
		return
	}
	p.results = results
	p.highlight = -1
}

// Suggestions are the results not already in the value.
func (p *Picker) Suggestions() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suggestions()
}

// key identifies an item. Free-text pickers compare case-insensitively.
func (p *Picker) key(id string) string {
	if p.cfg.AllowCreate {
		return strings.ToLower(strings.TrimSpace(id))
	}
	return id
}

func (p *Picker) suggestions() []Item {
	taken := make(map[string]bool, len(p.value))
	for _, v := range p.value {
		taken[p.key(v.ID)] = true
	}
	out := make([]Item, 0, len(p.results))
	for _, r := range p.results {
		if !taken[p.key(r.ID)] {
			out = append(out, r)
		}
	}
	return out
}

// Value returns a copy of the selected items.
func (p *Picker) Value() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Item(nil), p.value...)
}

// Input returns the current input text.
func (p *Picker) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input
}

// Highlight returns the highlighted suggestion index, -1 for none.
func (p *Picker) Highlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.highlight
}

// Open reports whether the suggestion list is shown.
func (p *Picker) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Err is the error of the last search, if any.
func (p *Picker) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Press handles a key and reports whether the value changed.
func (p *Picker) Press(k Key) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	var changed []Item
	switch k {
	case KeyArrowDown:
		p.highlight = clamp(p.highlight+1, len(p.suggestions()))
	case KeyArrowUp:
		p.highlight = clamp(p.highlight-1, len(p.suggestions()))
	case KeyEscape:
		p.open = false
		p.highlight = -1
	case KeyEnter:
		changed = p.enter()
	case KeyBackspace:
		if p.input == "" && len(p.value) > 0 {
			p.value = p.value[:len(p.value)-1]
			changed = p.value
		}
	}
	return p.notify(changed)
}

func clamp(i, n int) int {
	if i > n-1 {
		i = n - 1
	}
	if i < -1 {
		i = -1
	}
	return i
}

// enter selects the highlighted suggestion, or creates the input when allowed.
// Callers hold p.mu.
func (p *Picker) enter() []Item {
	sugg := p.suggestions()
	if p.highlight >= 0 && p.highlight < len(sugg) {
		return p.add(sugg[p.highlight])
	}
	if !p.cfg.AllowCreate {
		return nil
	}
	name := strings.TrimSpace(p.input)
	if name == "" {
		return nil
	}
	return p.add(Item{ID: name, Label: name})
}

// add appends it and clears the input. Callers hold p.mu.
func (p *Picker) add(it Item) []Item {
	for _, v := range p.value {
		if p.key(v.ID) == p.key(it.ID) {
			return nil
		}
	}
	p.value = append(p.value, it)
	p.input = ""
	p.term = ""
	p.highlight = -1
	p.stopTimer()
	return p.value
}

// notify releases p.mu and calls OnChange with a copy of value when it changed.
func (p *Picker) notify(value []Item) bool {
	if value == nil {
		p.mu.Unlock()
		return false
	}
	cp := make([]Item, len(value))
	copy(cp, value)
	p.mu.Unlock()
	if p.cfg.OnChange != nil {
		p.cfg.OnChange(cp)
	}
	return true
}

// Select picks suggestion i, as a click would.
func (p *Picker) Select(i int) bool {
	p.mu.Lock()
	sugg := p.suggestions()
	if p.closed || i < 0 || i >= len(sugg) {
		p.mu.Unlock()
		return false
	}
	return p.notify(p.add(sugg[i]))
}

// Add appends an item created elsewhere, such as a new speaker.
func (p *Picker) Add(it Item) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	return p.notify(p.add(it))
}

// Remove drops the item with id from the value.
func (p *Picker) Remove(id string) bool {
	p.mu.Lock()
	kept := make([]Item, 0, len(p.value))
	for _, v := range p.value {
		if p.key(v.ID) != p.key(id) {
			kept = append(kept, v)
		}
	}
	if p.closed || len(kept) == len(p.value) {
		p.mu.Unlock()
		return false
	}
	p.value = kept
	return p.notify(kept)
}

// Close tears the picker down: the pending search is cancelled and late results dropped.
func (p *Picker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.open = false
	p.stopTimer()
	p.cancel()
}

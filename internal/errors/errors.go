package errors

import (
	"sync"
	"time"
)

// Warning is a recoverable problem recorded during a build.
type Warning struct {
	Err       *BuildError
	Timestamp time.Time
}

// Collector gathers recoverable build errors so they can be reported once
// the build finishes.
type Collector struct {
	warnings []Warning
	mutex    sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{warnings: make([]Warning, 0)}
}

// Add records a recoverable error. Nil errors are ignored.
func (c *Collector) Add(err *BuildError) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.warnings = append(c.warnings, Warning{Err: err, Timestamp: time.Now()})
}

// Warnings returns a copy of the recorded warnings in insertion order.
func (c *Collector) Warnings() []Warning {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]Warning, len(c.warnings))
	copy(result, c.warnings)
	return result
}

// ByKind returns the recorded warnings of one kind.
func (c *Collector) ByKind(kind Kind) []*BuildError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var out []*BuildError
	for _, w := range c.warnings {
		if w.Err.Kind == kind {
			out = append(out, w.Err)
		}
	}
	return out
}

// Len returns the number of warnings.
func (c *Collector) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.warnings)
}

// Clear drops all warnings.
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.warnings = c.warnings[:0]
}

package build

import (
	"sync"
	"time"
)

// BuildMetrics tracks the outcome of successive builds in one process, as
// in watch mode.
type BuildMetrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	PagesWritten     int64
	LastBuildID      string
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker.
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records the report of one build and its error, if any.
func (bm *BuildMetrics) RecordBuild(report *Report, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds++
	if report != nil {
		bm.TotalDuration += report.Duration
		bm.LastBuildID = report.BuildID
	}

	if err != nil {
		bm.FailedBuilds++
	} else {
		bm.SuccessfulBuilds++
		if report != nil {
			bm.PagesWritten += int64(report.Written)
		}
	}

	bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalBuilds)
}

// GetSnapshot returns a copy of the current metrics.
func (bm *BuildMetrics) GetSnapshot() BuildMetrics {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return BuildMetrics{
		TotalBuilds:      bm.TotalBuilds,
		SuccessfulBuilds: bm.SuccessfulBuilds,
		FailedBuilds:     bm.FailedBuilds,
		PagesWritten:     bm.PagesWritten,
		LastBuildID:      bm.LastBuildID,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
	}
}

// Reset resets all metrics.
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds = 0
	bm.SuccessfulBuilds = 0
	bm.FailedBuilds = 0
	bm.PagesWritten = 0
	bm.LastBuildID = ""
	bm.AverageDuration = 0
	bm.TotalDuration = 0
}

// GetSuccessRate returns the success rate as a percentage.
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalBuilds == 0 {
		return 0.0
	}

	return float64(bm.SuccessfulBuilds) / float64(bm.TotalBuilds) * 100.0
}

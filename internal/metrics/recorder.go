// Package metrics records build pipeline observations.
//
// Components receive a Recorder and default to NoopRecorder, so metrics can
// be switched on by swapping in a PrometheusRecorder without nil checks at
// the call sites.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for builds and their stages.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome ResultLabel)
	SetPages(n int)
	SetIslands(used, bundled int)
	AddFilesRemoved(n int)
	AddAssetsCopied(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(ResultLabel)                {}
func (NoopRecorder) SetPages(int)                               {}
func (NoopRecorder) SetIslands(int, int)                        {}
func (NoopRecorder) AddFilesRemoved(int)                        {}
func (NoopRecorder) AddAssetsCopied(int)                        {}

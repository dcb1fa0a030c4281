package pipeline

import (
	"errors"
	"fmt"

	"github.com/hyperjump/chizu/internal/hybrid"
	"github.com/hyperjump/chizu/internal/reduce"
)

// Processing stage names, in pipeline order. They key StageDurations in the
// processing summary and identify where a StageError occurred.
const (
	StageValidate      = "validate"
	StageChunk         = "chunk"
	StageEmbedParent   = "embed_parent"
	StageEmbedChunk    = "embed_chunk"
	StageIndex         = "index"
	StageReduceCluster = "reduce_cluster"
	StageReduceViz     = "reduce_viz"
	StageCluster       = "cluster"
	StageSave          = "save"
)

var (
	// ErrInvalidInput means the caller's documents were unusable as a whole.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConsistency means derived artifacts disagree with their sources,
	// e.g. a vector count that does not match its entity count.
	ErrConsistency = errors.New("dataset consistency violation")

	// ErrNoDataset means no dataset has been processed or loaded yet.
	ErrNoDataset = errors.New("no dataset available")

	// ErrUnknownDataset means the requested dataset ID is not open.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrDegenerateLayout re-exports the reducer's collapsed-layout sentinel;
	// clustering a degenerate layout is meaningless, so it blocks clustering.
	ErrDegenerateLayout = reduce.ErrCollapsedLayout

	// ErrIndexStale re-exports the hybrid index's out-of-sync sentinel.
	ErrIndexStale = hybrid.ErrStale
)

// fallbackAction is what the orchestrator does when a stage fails without
// the run's context being cancelled.
type fallbackAction int

const (
	// abortRun discards everything; the previous snapshot stays current.
	abortRun fallbackAction = iota
	// skipClustering publishes the dataset without cluster labels.
	skipClustering
	// skipVisualization publishes without the 2D map.
	skipVisualization
	// allNoise labels every document as unclustered.
	allNoise
)

// fallbackPolicy centralizes per-stage failure handling so degradation
// decisions live in one place instead of in leaf routines. Stages absent
// from the table abort the run.
var fallbackPolicy = map[string]fallbackAction{
	StageReduceCluster: skipClustering,
	StageReduceViz:     skipVisualization,
	StageCluster:       allNoise,
}

func fallbackFor(stage string) fallbackAction {
	if action, ok := fallbackPolicy[stage]; ok {
		return action
	}
	return abortRun
}

// StageError wraps a failure with the pipeline stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

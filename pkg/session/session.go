// Package session holds the per-user flow through the app as an explicit
// finite-state machine: upload -> region-selection -> remote-processing ->
// review, with reset back to upload from anywhere. Transitions are pure
// functions over an immutable State; the Manager owns the mutable copies.
package session

import (
	"errors"

	"snapmath/pkg/imgproc"
	"snapmath/pkg/vision"
)

type Stage string

const (
	StageUpload       Stage = "upload"
	StageRegionSelect Stage = "region-selection"
	StageProcessing   Stage = "remote-processing"
	StageReview       Stage = "review"
)

var (
	// ErrInvalidTransition is returned when an event does not apply to
	// the current stage.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrStaleResult is returned when a remote result arrives for a
	// processing generation that was reset or superseded. The late
	// response is provably discarded instead of overwriting fresh state.
	ErrStaleResult = errors.New("stale processing result")
)

// State is the typed payload of a session at one stage. Values are treated
// as immutable; Apply returns a modified copy.
type State struct {
	Stage      Stage
	Image      *imgproc.RasterImage
	Region     *imgproc.Region
	Enhanced   *imgproc.RasterImage
	Extraction *vision.Extraction
	Expression string
	Result     *float64

	// Generation fences remote processing: it is bumped when processing
	// starts and when the session resets, so only the matching in-flight
	// call may deliver a result.
	Generation int
}

// Event drives a transition. Each event carries its own typed payload.
type Event interface{ isEvent() }

// ImageAttached moves a fresh or re-uploaded image into the session.
type ImageAttached struct {
	Image imgproc.RasterImage
}

// RegionSet stores the crop region chosen by the user.
type RegionSet struct {
	Region imgproc.Region
}

// ProcessingStarted suspends the session on the remote round trip.
type ProcessingStarted struct{}

// ProcessingFinished delivers the remote outcome for one generation.
type ProcessingFinished struct {
	Generation int
	Enhanced   *imgproc.RasterImage
	Extraction vision.Extraction
	Expression string
	Result     *float64
}

// ProcessingFailed rolls the session back to the pre-call stage.
type ProcessingFailed struct {
	Generation int
}

// ExpressionCorrected re-evaluates a user-edited expression locally.
type ExpressionCorrected struct {
	Expression string
	Result     *float64
}

// Reset discards all in-memory image and expression state.
type Reset struct{}

func (ImageAttached) isEvent()       {}
func (RegionSet) isEvent()           {}
func (ProcessingStarted) isEvent()   {}
func (ProcessingFinished) isEvent()  {}
func (ProcessingFailed) isEvent()    {}
func (ExpressionCorrected) isEvent() {}
func (Reset) isEvent()               {}

// Apply computes the next state for an event. It never mutates s.
func Apply(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case ImageAttached:
		// re-uploading while picking a region replaces the image
		if s.Stage != StageUpload && s.Stage != StageRegionSelect {
			return s, ErrInvalidTransition
		}
		next := s
		img := e.Image
		next.Stage = StageRegionSelect
		next.Image = &img
		next.Region = nil
		next.Enhanced = nil
		next.Extraction = nil
		next.Expression = ""
		next.Result = nil
		return next, nil

	case RegionSet:
		if s.Stage != StageRegionSelect {
			return s, ErrInvalidTransition
		}
		next := s
		region := e.Region.Clamped()
		next.Region = &region
		return next, nil

	case ProcessingStarted:
		// review allows reprocessing the same image
		if s.Stage != StageRegionSelect && s.Stage != StageReview {
			return s, ErrInvalidTransition
		}
		next := s
		next.Stage = StageProcessing
		next.Generation = s.Generation + 1
		return next, nil

	case ProcessingFinished:
		if s.Stage != StageProcessing || e.Generation != s.Generation {
			return s, ErrStaleResult
		}
		next := s
		next.Stage = StageReview
		next.Enhanced = e.Enhanced
		ext := e.Extraction
		next.Extraction = &ext
		next.Expression = e.Expression
		next.Result = e.Result
		return next, nil

	case ProcessingFailed:
		if s.Stage != StageProcessing || e.Generation != s.Generation {
			return s, ErrStaleResult
		}
		next := s
		next.Stage = StageRegionSelect
		return next, nil

	case ExpressionCorrected:
		if s.Stage != StageReview {
			return s, ErrInvalidTransition
		}
		next := s
		next.Expression = e.Expression
		next.Result = e.Result
		return next, nil

	case Reset:
		// generation bump leaves any in-flight remote call stale
		return State{Stage: StageUpload, Generation: s.Generation + 1}, nil
	}
	return s, ErrInvalidTransition
}

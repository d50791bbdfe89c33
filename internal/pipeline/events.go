package pipeline

import (
	"repowiki/internal/apperr"
	"repowiki/internal/types"
)

type Phase string

const (
	PhaseFetchingMetadata      Phase = "fetching_metadata"
	PhaseAnalyzingArchitecture Phase = "analyzing_architecture"
	PhaseGeneratingFeatures    Phase = "generating_features"
	PhaseFeatureComplete       Phase = "feature_complete"
	PhaseAssembling            Phase = "assembling"
	PhaseComplete              Phase = "complete"
	PhaseError                 Phase = "error"
)

// Event is one notification of a run. The concrete types are
// ProgressEvent, FeatureCompleteEvent, CompleteEvent and ErrorEvent.
type Event interface {
	// EventName is the wire event name.
	EventName() string
	isEvent()
}

type ProgressEvent struct {
	Phase            Phase  `json:"phase"`
	Message          string `json:"message"`
	Progress         int    `json:"progress"`
	Detail           string `json:"detail,omitempty"`
	FeaturesTotal    *int   `json:"featuresTotal,omitempty"`
	FeaturesComplete *int   `json:"featuresComplete,omitempty"`
}

type FeatureCompleteEvent struct {
	Phase            Phase         `json:"phase"`
	Feature          types.Feature `json:"feature"`
	FeatureIndex     int           `json:"featureIndex"`
	FeaturesTotal    int           `json:"featuresTotal"`
	FeaturesComplete int           `json:"featuresComplete"`
}

type CompleteEvent struct {
	Phase Phase       `json:"phase"`
	Wiki  *types.Wiki `json:"wiki"`
}

type ErrorEvent struct {
	Phase      Phase  `json:"phase"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter *int   `json:"retryAfter,omitempty"`
}

func (ProgressEvent) EventName() string        { return "progress" }
func (FeatureCompleteEvent) EventName() string { return "feature_complete" }
func (CompleteEvent) EventName() string        { return "complete" }
func (ErrorEvent) EventName() string           { return "error" }

func (ProgressEvent) isEvent()        {}
func (FeatureCompleteEvent) isEvent() {}
func (CompleteEvent) isEvent()        {}
func (ErrorEvent) isEvent()           {}

// EmitFunc receives events. Implementations must not block for long; the
// orchestrator calls it from its own goroutines, one call at a time.
type EmitFunc func(Event)

func progress(phase Phase, pct int, msg string) ProgressEvent {
	return ProgressEvent{Phase: phase, Message: msg, Progress: pct}
}

func (e ProgressEvent) withCounts(total, complete int) ProgressEvent {
	e.FeaturesTotal = &total
	e.FeaturesComplete = &complete
	return e
}

func (e ProgressEvent) withDetail(d string) ProgressEvent {
	e.Detail = d
	return e
}

// NewCompleteEvent wraps a finished wiki.
func NewCompleteEvent(w *types.Wiki) CompleteEvent {
	return CompleteEvent{Phase: PhaseComplete, Wiki: w}
}

// JoinedEvent is sent to a caller that attached to an in-flight run.
func JoinedEvent() ProgressEvent {
	return progress(PhaseGeneratingFeatures, 50, "Generation in progress...")
}

// NewErrorEvent classifies err and renders its user-facing message.
func NewErrorEvent(err error) ErrorEvent {
	e := apperr.Classify(err)
	ev := ErrorEvent{Phase: PhaseError, Code: string(e.Code), Message: apperr.UserMessage(e)}
	if e.Code == apperr.CodeRateLimited && e.RetryAfter > 0 {
		ra := e.RetryAfter
		ev.RetryAfter = &ra
	}
	return ev
}

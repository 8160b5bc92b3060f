package playback

import "fmt"

// EventType identifies a driver event
type EventType int

// EventType values
const (
	ProgressUpdated EventType = iota + 1
	MetadataReady
	InteractionOccurred
	Resized
	VisibilityChanged
)

func (t EventType) String() string {
	switch t {
	case ProgressUpdated:
		return "progress_updated"
	case MetadataReady:
		return "metadata_ready"
	case InteractionOccurred:
		return "interaction_occurred"
	case Resized:
		return "resized"
	case VisibilityChanged:
		return "visibility_changed"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is a single update from the host. Only the fields relevant to Type
// are set.
type Event struct {
	Type     EventType
	Progress float64
	Duration float64
	Width    int
	Height   int
	Ratio    float64
}

// Source delivers host events in order
type Source interface {
	Events() <-chan Event
}

// ChanSource is a Source backed by a channel
type ChanSource chan Event

// Events implements Source
func (c ChanSource) Events() <-chan Event {
	return c
}

// Progress builds a ProgressUpdated event
func Progress(p float64) Event {
	return Event{Type: ProgressUpdated, Progress: p}
}

// Metadata builds a MetadataReady event
func Metadata(duration float64) Event {
	return Event{Type: MetadataReady, Duration: duration}
}

// Interaction builds an InteractionOccurred event
func Interaction() Event {
	return Event{Type: InteractionOccurred}
}

// Resize builds a Resized event
func Resize(width, height int) Event {
	return Event{Type: Resized, Width: width, Height: height}
}

// Visibility builds a VisibilityChanged event from an intersection ratio
func Visibility(ratio float64) Event {
	return Event{Type: VisibilityChanged, Ratio: ratio}
}

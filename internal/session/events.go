package session

// EventType classifies coordinator events.
type EventType string

const (
	// EventPhase signals a lifecycle phase change, including spawn failures
	// (Err set, phase Closed).
	EventPhase EventType = "phase"
	// EventOutput carries a chunk of session output for display.
	EventOutput EventType = "output"
	// EventCwd signals a working-directory change detected in the output
	// stream. The workspace folds it back into the pane tree.
	EventCwd EventType = "cwd"
)

// Event is published on the session broker for every observable coordinator
// transition.
type Event struct {
	Type   EventType
	TabID  string
	PaneID string
	Phase  Phase
	Output []byte
	Cwd    string
	Err    error
}

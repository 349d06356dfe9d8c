package phase

// State is the lifecycle position of a run.
type State int32

const (
	Configured State = iota
	Running
	Stopping
	Done
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

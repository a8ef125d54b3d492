package pipeline

// State is a lifecycle phase of one pipeline run.
type State int32

const (
	Init State = iota
	ConnectingCamera
	StartingOutput
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case ConnectingCamera:
		return "connecting_camera"
	case StartingOutput:
		return "starting_output"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Status texts shown to the user.
const (
	StatusConnecting      = "Connecting to Camera..."
	StatusCameraNotFound  = "Error: Camera Not Found"
	StatusStartingOutput  = "Starting Virtual Camera..."
	StatusActivePrefix    = "Active: "
	StatusGUIOnly         = "Warning: Virtual Cam Failed (GUI Only)"
	StatusDisconnected    = "Error: Camera Disconnected"
	StatusModelLoadFailed = "Error: Model Load Failed"
	StatusDetectionFailed = "Error: Detection Failed"
	StatusOutputLost      = "Error: Virtual Cam Disconnected"
	StatusStopped         = "Stopped"
)

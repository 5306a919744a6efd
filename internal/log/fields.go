package log

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
)

// FieldComponent tags every record emitted through a Logger.
const FieldComponent = "component"

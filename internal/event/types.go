package event

const (
	EventModeChanged       = "rotation.mode_changed"
	EventLookTargetChanged = "rotation.look_target_changed"
)

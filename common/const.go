package common

// JSON-RPC request methods.
const (
	MethodEventNext     = "event.next"
	MethodCountdownGet  = "countdown.get"
	MethodModeSet       = "mode.set"
	MethodModeGet       = "mode.get"
	MethodMadhabSet     = "madhab.set"
	MethodLocationGet   = "location.get"
	MethodLocationSet   = "location.set"
	MethodTimesGet      = "times.get"
	MethodAudioUnlock   = "audio.unlock"
	MethodAudioState    = "audio.state"
	MethodSystemVersion = "system.getVersion"
)

// Push notifications sent to attached clients.
const (
	PushEventChanged    = "event.changed"
	PushUnlockChanged   = "audio.unlockChanged"
	PushAlertFired      = "alert.fired"
	PushAlertNotify     = "alert.notification"
	PushCountdownUpdate = "countdown.tick"
)

// JSON-RPC error codes.
const (
	CodeNoEvent       = -32001
	CodeNoLocation    = -32002
	CodeInvalidParams = -32602
)

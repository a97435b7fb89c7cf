package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"

	FieldItemID    = "item_id"
	FieldItemTitle = "item_title"
	FieldAlertKey  = "alert_key"
	FieldArmed     = "armed"
	FieldSkipped   = "skipped"
)

// Standard component names.
const (
	ComponentApp       = "app"
	ComponentScheduler = "scheduler"
	ComponentNotify    = "notify"
	ComponentAMQP      = "amqp"
)

// Standard operation names.
const (
	OpReschedule = "reschedule"
	OpFire       = "fire"
)

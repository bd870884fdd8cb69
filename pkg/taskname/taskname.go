package taskname

// Background task types dispatched through asynq.
const (
	NotificationDispatch = "notification:dispatch"
	PartnerHealthScan    = "partner:health:scan"
)

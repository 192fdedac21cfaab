package errcode

// Error code convention for websocket status messages:
// - 0: no error
// - 4xxx: recoverable, user-actionable (retry / change printer)
// - 5xxx: system errors
const (
	OK            = 0
	DispatchError = 4001
	NoPrinter     = 4002
	SystemError   = 5000
)

package contracts

// ILogger is the leveled logger every long-running operation writes to.
type ILogger interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Error(format string, args ...any)
	System(format string, args ...any)
}

package ports

import "context"

// DigitResult is the outcome of a digit-collection command.
type DigitResult struct {
	Value    string
	TimedOut bool
}

// RecordParams configures a caller-audio capture.
type RecordParams struct {
	File         string
	Format       string
	EscapeDigits string
	TimeoutMS    int
	SilenceSec   int
	Offset       int
	Beep         bool
}

// CallControl is the imperative command surface of one call leg. The runtime
// depends on this contract only; the FastAGI adapter implements it over the
// per-call connection, and tests substitute a scripted fake.
//
// Every operation blocks until the platform acknowledges the command, so all
// methods take a context for cancellation.
type CallControl interface {
	Answer(ctx context.Context) error
	Hangup(ctx context.Context, channel string) error
	StreamFile(ctx context.Context, file, escapeDigits string, offset int) error
	RecordFile(ctx context.Context, p RecordParams) error
	CollectDigits(ctx context.Context, prompt string, timeoutMS, maxDigits int) (DigitResult, error)
	SetCallerID(ctx context.Context, number string) error
	SetMusic(ctx context.Context, on bool, class string) error
	ExecApp(ctx context.Context, app, options string) error
	Verbose(ctx context.Context, message string, level int) error
	SetVariable(ctx context.Context, name, value string) error
	GetVariable(ctx context.Context, name string) (string, error)
	GetFullVariable(ctx context.Context, expr string) (string, error)
	DBGet(ctx context.Context, family, key string) (string, error)
	DBPut(ctx context.Context, family, key, value string) error
	DBDel(ctx context.Context, family, key string) error
	GotoOnExit(ctx context.Context, dialContext, extension, priority string) error
}

package domain

import "fmt"

// FailureKind classifies the unrecoverable conditions that terminate a
// satellite worker. Each kind maps to exactly one condition; the coordinator
// surfaces a single WorkerError and never retries.
type FailureKind int

const (
	// KindRegistrationTimeout - no controller reply within the registration deadline
	KindRegistrationTimeout FailureKind = iota + 1
	// KindRegistrationRejected - controller answered registration with an error code
	KindRegistrationRejected
	// KindControllerUnreachable - a heartbeat went unanswered after a successful registration
	KindControllerUnreachable
	// KindHandlerFailure - a dispatched command handler returned an unrecoverable error
	KindHandlerFailure
)

func (k FailureKind) String() string {
	switch k {
	case KindRegistrationTimeout:
		return "registration timeout"
	case KindRegistrationRejected:
		return "registration rejected"
	case KindControllerUnreachable:
		return "controller unreachable"
	case KindHandlerFailure:
		return "handler failure"
	}
	return "unknown"
}

// WorkerError is the single terminal error a worker coordinator surfaces to
// its host process. The message alone is specific enough to tell timeout from
// rejection from unreachability from handler failure.
type WorkerError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *WorkerError) Error() string { return e.Message }

func (e *WorkerError) Unwrap() error { return e.Err }

// Is matches two WorkerErrors on kind so callers can branch with errors.Is
// without caring about the formatted message.
func (e *WorkerError) Is(target error) bool {
	t, ok := target.(*WorkerError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewRegistrationTimeout reports that the controller never answered the
// registration request.
func NewRegistrationTimeout() *WorkerError {
	return &WorkerError{Kind: KindRegistrationTimeout, Message: "Controller registration timeout"}
}

// NewRegistrationRejected reports a coded registration rejection; msg comes
// from the response code catalog, e.g. "w already registered".
func NewRegistrationRejected(msg string) *WorkerError {
	return &WorkerError{Kind: KindRegistrationRejected, Message: msg}
}

// NewControllerUnreachable reports a missed heartbeat reply.
func NewControllerUnreachable() *WorkerError {
	return &WorkerError{Kind: KindControllerUnreachable, Message: "Controller unreachable"}
}

// NewHandlerFailure wraps the error a command handler failed with.
func NewHandlerFailure(command string, err error) *WorkerError {
	return &WorkerError{
		Kind:    KindHandlerFailure,
		Message: fmt.Sprintf("command %s failed: %v", command, err),
		Err:     err,
	}
}

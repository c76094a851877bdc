package prediction

// Kind classifies a prediction failure.
type Kind int

const (
	// Unreachable covers every transport or protocol failure: refused
	// connections, timeouts, non-2xx statuses and malformed bodies.
	Unreachable Kind = iota + 1
)

func (k Kind) String() string {
	if k == Unreachable {
		return "unreachable"
	}
	return "unknown"
}

// UnreachableMessage is the only text shown to users on failure.
const UnreachableMessage = "Connection failed. Ensure the prediction service is reachable."

// ErrUnreachable matches any *Error of kind Unreachable with errors.Is.
var ErrUnreachable = &Error{Kind: Unreachable}

// Error is returned by Client.Predict. Err holds the underlying cause for
// logs; Error() never exposes it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return UnreachableMessage
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func unreachable(err error) *Error {
	return &Error{Kind: Unreachable, Err: err}
}

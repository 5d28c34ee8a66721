package dispatch

// Kind is a stable, typed error classification delivered to clients instead
// of a free-text message, mirroring the teacher's use of
// google.golang.org/grpc/codes/status for a typed error surface —
// generalized away from gRPC status codes since transport is out of scope.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindNotYourTurn   Kind = "not_your_turn"
	KindIllegalAction Kind = "illegal_action"
	KindLobbyFull     Kind = "lobby_full"
	KindAlreadySeated Kind = "already_seated"
	KindMultiLobby    Kind = "multi_lobby"
	KindInvalidInput  Kind = "invalid_input"
	KindInternal      Kind = "internal"
)

// DispatchError is a typed, client-facing dispatcher error.
type DispatchError struct {
	Kind    Kind
	Message string
}

func (e *DispatchError) Error() string { return e.Message }

func newErr(kind Kind, message string) *DispatchError {
	return &DispatchError{Kind: kind, Message: message}
}

func ErrNotFound(message string) *DispatchError      { return newErr(KindNotFound, message) }
func ErrNotYourTurn(message string) *DispatchError   { return newErr(KindNotYourTurn, message) }
func ErrIllegalAction(message string) *DispatchError { return newErr(KindIllegalAction, message) }
func ErrLobbyFull(message string) *DispatchError     { return newErr(KindLobbyFull, message) }
func ErrAlreadySeated(message string) *DispatchError { return newErr(KindAlreadySeated, message) }
func ErrMultiLobby(message string) *DispatchError     { return newErr(KindMultiLobby, message) }
func ErrInvalidInput(message string) *DispatchError  { return newErr(KindInvalidInput, message) }
func ErrInternal(message string) *DispatchError      { return newErr(KindInternal, message) }

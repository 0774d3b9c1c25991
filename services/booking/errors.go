package booking

import "fmt"

// ProtocolError reports a misuse of the state machine, such as stepping a
// transaction that is already terminal.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewProtocolError(msg string) error {
	return &ProtocolError{
		Code:    "protocolError",
		Message: msg,
	}
}

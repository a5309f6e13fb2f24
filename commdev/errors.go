package commdev

import (
	"errors"
	"fmt"

	"github.com/hipsterbrown/chassis-comm/bridge"
	"github.com/hipsterbrown/chassis-comm/console"
	"github.com/hipsterbrown/chassis-comm/expander"
	"github.com/hipsterbrown/chassis-comm/fanctl"
)

// CommError is a failed operation together with the completion code reported
// to the caller.
type CommError struct {
	Op   string
	Code CompletionCode
	Err  error
}

func (e *CommError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *CommError) Unwrap() error {
	return e.Err
}

func newError(op string, code CompletionCode, err error) *CommError {
	return &CommError{Op: op, Code: code, Err: err}
}

// CodeOf maps an error to the completion code returned to the caller.
// Unclassified errors are serial port failures.
func CodeOf(err error) CompletionCode {
	if err == nil {
		return Success
	}

	var ce *CommError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var cc CompletionCode
	if errors.As(err, &cc) {
		return cc
	}

	switch {
	case bridge.IsI2CError(err):
		return I2cErrors
	case bridge.IsTimeout(err), errors.Is(err, console.ErrTimeout):
		return Timeout
	case errors.Is(err, fanctl.ErrNoReading), errors.Is(err, console.ErrShortFrame):
		return ResponseNotProvided
	case errors.Is(err, fanctl.ErrPWMRange),
		errors.Is(err, fanctl.ErrInvalidID),
		errors.Is(err, expander.ErrInvalidID):
		return InvalidDataFieldInRequest
	case errors.Is(err, console.ErrInvalidRequest):
		return InvalidRequestDataLength
	}

	var cmdErr *bridge.CommandError
	if errors.As(err, &cmdErr) {
		return InvalidDataFieldInRequest
	}
	return SerialPortOtherErrors
}

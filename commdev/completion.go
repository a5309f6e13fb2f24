package commdev

import "fmt"

// CompletionCode is the first byte of every response.
type CompletionCode byte

const (
	Success                        CompletionCode = 0x00
	I2cErrors                      CompletionCode = 0xA1
	SerialPortOtherErrors          CompletionCode = 0xA2
	CommDevFailedToInit            CompletionCode = 0xA3
	FailToOpenSerialPort           CompletionCode = 0xA4
	FailToCloseSerialPort          CompletionCode = 0xA5
	ServiceTerminating             CompletionCode = 0xA6
	InvalidCommand                 CompletionCode = 0xC1
	Timeout                        CompletionCode = 0xC3
	OutOfSpace                     CompletionCode = 0xC4
	InvalidRequestDataLength       CompletionCode = 0xC7
	InvalidDataFieldInRequest      CompletionCode = 0xCC
	ResponseNotProvided            CompletionCode = 0xCE
	CannotExecuteRequestInSafeMode CompletionCode = 0xD5
	UnspecifiedError               CompletionCode = 0xFF
)

func (c CompletionCode) String() string {
	switch c {
	case Success:
		return "success"
	case I2cErrors:
		return "i2c errors"
	case SerialPortOtherErrors:
		return "serial port error"
	case CommDevFailedToInit:
		return "communication device failed to initialize"
	case FailToOpenSerialPort:
		return "failed to open serial port"
	case FailToCloseSerialPort:
		return "failed to close serial port"
	case ServiceTerminating:
		return "service terminating"
	case InvalidCommand:
		return "invalid command"
	case Timeout:
		return "timeout"
	case OutOfSpace:
		return "out of space"
	case InvalidRequestDataLength:
		return "invalid request data length"
	case InvalidDataFieldInRequest:
		return "invalid data field in request"
	case ResponseNotProvided:
		return "response not provided"
	case CannotExecuteRequestInSafeMode:
		return "cannot execute request in safe mode"
	case UnspecifiedError:
		return "unspecified error"
	default:
		return fmt.Sprintf("completion code 0x%02X", byte(c))
	}
}

// Error lets a completion code travel as an error.
func (c CompletionCode) Error() string {
	return c.String()
}

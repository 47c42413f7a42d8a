package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error codes shared by the workflow, location and login layers.
// Validation codes sit in the 1xxx range, location in 2xxx, login in 3xxx
// and workflow misuse in 4xxx.
const (
	CodeEmptyLocation = 1001
	CodeTooShort      = 1002

	CodeServicesDisabled    = 2001
	CodePermissionDenied    = 2002
	CodeLocationTimeout     = 2003
	CodeLocationUnavailable = 2004

	CodeMissingCredentials = 3001
	CodeInvalidCredentials = 3002
	CodeAccountNotApproved = 3003
	CodeConnectionFailed   = 3004
	CodeUnexpected         = 3005

	CodeInvalidTransition = 4001
	CodeLocateInFlight    = 4002
	CodeFlowNotFound      = 4003
)

// Error represents a coded error with stack trace
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"` // 原始错误，不序列化
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return WithCode(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err under a message. The code of err, if any, is kept.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    GetCode(err),
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// WrapCode wraps err under an explicit code and message.
func WrapCode(err error, code int, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// New creates a new error without code
func New(message string) *Error {
	return &Error{
		Message: message,
		Stack:   captureStack(),
	}
}

// WithContext returns a copy of e carrying one more key/value pair.
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}
	newErr := *e
	newErr.Context = make([]KeyValue, len(e.Context), len(e.Context)+1)
	copy(newErr.Context, e.Context)
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	return &newErr
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// 移除顶部几行（captureStack 和构造函数）
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}
	return strings.TrimSpace(stack)
}

// GetCode returns the first non-zero code found in err's chain.
func GetCode(err error) int {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return 0
		}
		if e.Code != 0 {
			return e.Code
		}
		err = e.Err
	}
	return 0
}

// HasCode reports whether err carries code.
func HasCode(err error, code int) bool {
	return err != nil && GetCode(err) == code
}

// GetMessage returns the user-facing message of err.
func GetMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Error()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Cause returns the innermost error
func Cause(err error) error {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Err != nil {
			err = e.Err
		} else {
			return err
		}
	}
	return err
}

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

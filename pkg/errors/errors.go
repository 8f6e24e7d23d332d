package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every CustomizedError may carry one of them, callers classify with Is.
var (
	ErrAuth     = stderrors.New("auth error")
	ErrCapture  = stderrors.New("capture error")
	ErrStorage  = stderrors.New("storage error")
	ErrRemote   = stderrors.New("remote error")
	ErrService  = stderrors.New("service error")
	ErrNotFound = stderrors.New("not found")
	ErrInvalid  = stderrors.New("invalid argument")
)

type CustomizedError struct {
	cause   error
	message string
	trace   []string
	wrap    error
	kind    error
	code    int
	data    map[string]interface{}
}

func (e *CustomizedError) WithData(data map[string]interface{}) *CustomizedError {
	e.data = data
	return e
}

func (e *CustomizedError) Data() map[string]interface{} {
	return e.data
}

func (e *CustomizedError) Code(c int) *CustomizedError {
	e.code = c
	return e
}

func (e *CustomizedError) GetCode() int {
	return e.code
}

// Kind marks the error with one of the package level kinds.
func (e *CustomizedError) Kind(kind error) *CustomizedError {
	e.kind = kind
	return e
}

func (e *CustomizedError) GetKind() error {
	return e.kind
}

func New(trace, message string, err error) *CustomizedError {
	code := http.StatusInternalServerError
	return &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		code:    code,
	}
}

func (e *CustomizedError) Trace(trace string) *CustomizedError {
	e.trace = append(e.trace, trace)
	return e
}

func Wrap(err error, trace, message string) *CustomizedError {
	ce := &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		wrap:    err,
	}
	if income, ok := err.(*CustomizedError); ok {
		ce.code = income.code
		ce.kind = income.kind
	}
	return ce
}

func Trace(trace string, err error) *CustomizedError {
	if ce, ok := err.(*CustomizedError); ok {
		ce.trace = append(ce.trace, trace)
		return ce
	}
	return Wrap(err, trace, err.Error())
}

func (e *CustomizedError) Message() string {
	if e.message == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

// Is reports a match against the error kind, so errors.Is(err, ErrAuth) works through wrapping.
func (e *CustomizedError) Is(target error) bool {
	return e.kind != nil && e.kind == target
}

func (e *CustomizedError) Unwrap() error {
	return e.cause
}

func (e *CustomizedError) Error() string {
	otherDetails := `""`
	if ce, ok := e.wrap.(*CustomizedError); ok {
		otherDetails = ce.Error()
	} else if e.wrap != nil {
		otherDetails = fmt.Sprint("\"", e.wrap.Error(), "\"")
	}
	return fmt.Sprintf(`{"trace":"%s","code":%d,"msg":"%s","error":"%v","wrapd":%s}`, strings.Join(e.trace, "->"), e.code, e.message, e.cause, otherDetails)
}

// Is and As re-export the standard helpers so callers only import this package.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Package catchpanic turns panics into errors so one bad video or job
// can't take a worker down with it.
package catchpanic

import (
	"fmt"
	"runtime"

	"github.com/niconiahi/olga.media/internal/stackutil"
)

// PanicError is a recovered panic. Value is what was passed to panic, and
// Stack is where it happened.
type PanicError struct {
	Value interface{}
	Stack []runtime.Frame
}

func (e *PanicError) Error() string {
	where := "unknown location"
	if len(e.Stack) > 0 {
		where = stackutil.FormatStackFrame(e.Stack[0])
	}

	return fmt.Sprintf("panic at %s: %v", where, e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

func Catch(fn func()) (err error) {
	defer func() {
		if ex := recover(); ex != nil {
			// skip this func and runtime.gopanic
			err = &PanicError{Value: ex, Stack: stackutil.GetStack(32, 2)}
		}
	}()

	fn()

	return
}

func CatchErr0(fn func() error) error {
	var err error

	if err1 := Catch(func() { err = fn() }); err1 != nil {
		return err1
	}

	return err
}

func CatchErr1[T any](fn func() (T, error)) (T, error) {
	var res T
	var err error

	if err1 := Catch(func() { res, err = fn() }); err1 != nil {
		err = err1
	}

	return res, err
}

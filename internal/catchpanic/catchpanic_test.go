package catchpanic

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errTest = errors.New("test_error")

func TestCatch(t *testing.T) {
	for _, tc := range []struct {
		name  string
		fn    func()
		isErr bool
	}{
		{"error", func() { panic(fmt.Errorf("wrapped: %w", errTest)) }, true},
		{"string", func() { panic("test_error") }, false},
		{"nil map", func() {
			var m map[string]int
			m["x"] = 1
		}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			err := Catch(tc.fn)

			var pe *PanicError
			if a.ErrorAs(err, &pe) {
				a.NotNil(pe.Value)
				a.NotEmpty(pe.Stack)

				found := false
				for _, f := range pe.Stack {
					if strings.Contains(f.Function, "catchpanic.TestCatch") {
						found = true
					}
				}
				a.True(found, "stack should include the panicking test function")
			}

			a.Equal(tc.isErr, errors.Is(err, errTest))
		})
	}

	assert.NoError(t, Catch(func() {}))
}

func TestCatchErr0(t *testing.T) {
	a := assert.New(t)

	a.NoError(CatchErr0(func() error { return nil }))
	a.ErrorIs(CatchErr0(func() error { return errTest }), errTest)
	a.ErrorIs(CatchErr0(func() error { panic(errTest) }), errTest)

	err := CatchErr0(func() error { panic("test_error") })
	a.ErrorContains(err, "test_error")
	a.ErrorContains(err, "panic at ")
}

func TestCatchErr1(t *testing.T) {
	a := assert.New(t)

	{
		v, err := CatchErr1(func() (string, error) { return "test_result", nil })
		a.Equal("test_result", v)
		a.NoError(err)
	}

	{
		v, err := CatchErr1(func() (string, error) { return "test_result", errTest })
		a.Equal("test_result", v)
		a.ErrorIs(err, errTest)
	}

	{
		v, err := CatchErr1(func() (int, error) { panic(errTest) })
		a.Equal(0, v)
		a.ErrorIs(err, errTest)
	}

	{
		v, err := CatchErr1(func() ([]string, error) { panic("test_error") })
		a.Nil(v)
		var pe *PanicError
		a.ErrorAs(err, &pe)
		a.Nil(pe.Unwrap())
	}
}

package stackutil

import (
	"fmt"
	"runtime"
	"strings"
)

// GetStack returns up to depth frames of the caller's stack, leaving out the
// innermost skip frames (GetStack itself is never included).
func GetStack(depth, skip int) []runtime.Frame {
	// +2 for runtime.Callers and this function
	pc := make([]uintptr, depth+skip+2)

	n := runtime.Callers(0, pc)
	if n == 0 {
		return []runtime.Frame{}
	}

	frames := runtime.CallersFrames(pc[:n])

	skip += 2

	var a []runtime.Frame

	for i := 0; len(a) < depth; i++ {
		frame, more := frames.Next()

		if i >= skip {
			a = append(a, frame)
		}

		if !more {
			break
		}
	}

	return a
}

// InPackage reports whether frame is a function of pkg (not of a package
// whose path merely starts with pkg).
func InPackage(frame runtime.Frame, pkg string) bool {
	if !strings.HasPrefix(frame.Function, pkg) {
		return false
	}

	rest := frame.Function[len(pkg):]

	return strings.HasPrefix(rest, ".")
}

// WithoutPackages drops every frame belonging to one of pkgs.
func WithoutPackages(a []runtime.Frame, pkgs []string) []runtime.Frame {
	var r []runtime.Frame

outer:
	for _, f := range a {
		for _, pkg := range pkgs {
			if InPackage(f, pkg) {
				continue outer
			}
		}

		r = append(r, f)
	}

	return r
}

func FormatStack(a []runtime.Frame) []string {
	r := make([]string, len(a))
	for i, e := range a {
		r[i] = FormatStackFrame(e)
	}
	return r
}

func FormatStackFrame(f runtime.Frame) string {
	return fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Function)
}

// Package logrusstackhook adds the caller's stack to log entries on chosen
// levels, as stack.00, stack.01 and so on.
package logrusstackhook

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/stackutil"
)

const maxDepth = 25

var (
	DefaultLevels = []logrus.Level{logrus.DebugLevel, logrus.TraceLevel}

	// frames from these are never interesting
	DefaultSkipPackages = []string{
		"github.com/sirupsen/logrus",
		"runtime",
	}
)

type StackHook struct {
	levels       []logrus.Level
	skipPackages []string
	depth        int
}

// NewStackHook returns a hook firing on levels (DefaultLevels if nil). Frames
// from DefaultSkipPackages and skipPackages are left out.
func NewStackHook(levels []logrus.Level, skipPackages []string) *StackHook {
	if levels == nil {
		levels = DefaultLevels
	}

	return &StackHook{
		levels:       levels,
		skipPackages: append(append([]string(nil), DefaultSkipPackages...), skipPackages...),
		depth:        maxDepth,
	}
}

func AllLevelsAbove(lowestLevel logrus.Level) []logrus.Level {
	var levels []logrus.Level

	for _, e := range logrus.AllLevels {
		if e >= lowestLevel {
			levels = append(levels, e)
		}
	}

	return levels
}

func (h *StackHook) Levels() []logrus.Level { return h.levels }

func (h *StackHook) Fire(e *logrus.Entry) error {
	// skip Fire itself
	frames := stackutil.WithoutPackages(stackutil.GetStack(h.depth+10, 1), h.skipPackages)
	if len(frames) > h.depth {
		frames = frames[:h.depth]
	}

	for i, frame := range frames {
		e.Data[fmt.Sprintf("stack.%02d", i)] = stackutil.FormatStackFrame(frame)
	}

	return nil
}

// Package querylog wraps a database/sql driver so statements are logged
// through the context's logger, along with how long they took and which
// code ran them.
package querylog

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	proxy "github.com/shogo82148/go-sql-proxy"
	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
	"github.com/niconiahi/olga.media/internal/stackutil"
)

var (
	ErrSkip = errors.New("skip logging")
)

type Entry struct {
	Start    time.Time
	Duration time.Duration
	Stack    []runtime.Frame

	query     string
	queryText string
	queryArgs []driver.NamedValue
}

// Query is the statement with its arguments filled in.
func (e *Entry) Query() string {
	if e.query == "" && e.queryText != "" {
		e.query = Interpolate(e.queryText, e.queryArgs)
	}
	return e.query
}

type Filter interface {
	// Collect runs before the statement. Returning ErrSkip drops it.
	Collect(ctx context.Context, e *Entry) error
	// Log runs after the statement, when Duration is known.
	Log(ctx context.Context, e *Entry) error
	HideFrame(ctx context.Context, frame runtime.Frame) bool
}

func now(ctx context.Context) time.Time {
	if t, err := ctxclock.Now(ctx); err == nil {
		return t
	}

	return time.Now()
}

func start(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue, filters []Filter) (interface{}, error) {
	e := &Entry{
		Start: now(ctx),
		Stack: stackutil.GetStack(60, 2),
	}

	if stmt != nil {
		e.queryText = stmt.QueryString
		e.queryArgs = args
	}

	for _, filter := range filters {
		if err := filter.Collect(ctx, e); err != nil {
			if errors.Is(err, ErrSkip) {
				return nil, nil
			}

			return nil, fmt.Errorf("querylog.start: %w", err)
		}
	}

	return e, nil
}

func finish(ctx context.Context, stmtErr error, qctx interface{}, filters []Filter, prefix, message string) error {
	e, ok := qctx.(*Entry)
	if !ok || e == nil {
		return stmtErr
	}

	e.Duration = now(ctx).Sub(e.Start)

	for _, filter := range filters {
		if err := filter.Log(ctx, e); err != nil {
			if errors.Is(err, ErrSkip) {
				return stmtErr
			}

			return errors.Join(stmtErr, fmt.Errorf("querylog.finish: %w", err))
		}
	}

	fields := logrus.Fields{
		prefix + ".start":    e.Start.Format(time.RFC3339Nano),
		prefix + ".duration": e.Duration,
	}

	if q := e.Query(); q != "" {
		fields[prefix+".content"] = q
	}

	if stmtErr != nil {
		fields[prefix+".error"] = stmtErr.Error()
	}

	index := 0

frames:
	for _, frame := range e.Stack {
		for _, filter := range filters {
			if filter.HideFrame(ctx, frame) {
				continue frames
			}
		}

		fields[fmt.Sprintf("%s.stack.%02d", prefix, index)] = stackutil.FormatStackFrame(frame)
		index++
	}

	l := ctxlogger.GetLogger(ctx).WithFields(fields)
	if stmtErr != nil {
		l.Warn(message)
	} else {
		l.Info(message)
	}

	return stmtErr
}

// New wraps the driver. Every statement, transaction begin, commit and
// rollback passes through filters before it's logged.
func New(wrapped driver.Driver, filters ...Filter) driver.Driver {
	return proxy.NewProxyContext(wrapped, &proxy.HooksContext{
		PreExec: func(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue) (interface{}, error) {
			return start(ctx, stmt, args, filters)
		},
		PostExec: func(ctx context.Context, qctx interface{}, stmt *proxy.Stmt, args []driver.NamedValue, _ driver.Result, err error) error {
			return finish(ctx, err, qctx, filters, "sql.exec", "sql exec")
		},
		PreQuery: func(ctx context.Context, stmt *proxy.Stmt, args []driver.NamedValue) (interface{}, error) {
			return start(ctx, stmt, args, filters)
		},
		PostQuery: func(ctx context.Context, qctx interface{}, stmt *proxy.Stmt, args []driver.NamedValue, _ driver.Rows, err error) error {
			return finish(ctx, err, qctx, filters, "sql.query", "sql query")
		},
		PreBegin: func(ctx context.Context, conn *proxy.Conn) (interface{}, error) {
			return start(ctx, nil, nil, filters)
		},
		PostBegin: func(ctx context.Context, qctx interface{}, conn *proxy.Conn, err error) error {
			return finish(ctx, err, qctx, filters, "sql.tx_begin", "sql tx begin")
		},
		PreCommit: func(ctx context.Context, tx *proxy.Tx) (interface{}, error) {
			return start(ctx, nil, nil, filters)
		},
		PostCommit: func(ctx context.Context, qctx interface{}, tx *proxy.Tx, err error) error {
			return finish(ctx, err, qctx, filters, "sql.tx_commit", "sql tx commit")
		},
		PreRollback: func(ctx context.Context, tx *proxy.Tx) (interface{}, error) {
			return start(ctx, nil, nil, filters)
		},
		PostRollback: func(ctx context.Context, qctx interface{}, tx *proxy.Tx, err error) error {
			return finish(ctx, err, qctx, filters, "sql.tx_rollback", "sql tx rollback")
		},
	})
}

// BasicFilter covers the usual needs: only log slow statements, hide stack
// frames from plumbing packages, and stay quiet about statements made by
// pollers.
type BasicFilter struct {
	SlowerThan      time.Duration
	HidePackages    []string
	IgnoreFunctions []string
}

func (b *BasicFilter) Collect(ctx context.Context, e *Entry) error {
	for _, functionName := range b.IgnoreFunctions {
		for _, frame := range e.Stack {
			if frame.Function == functionName {
				return ErrSkip
			}
		}
	}

	return nil
}

func (b *BasicFilter) Log(ctx context.Context, e *Entry) error {
	if b.SlowerThan != 0 && e.Duration < b.SlowerThan {
		return ErrSkip
	}

	return nil
}

func (b *BasicFilter) HideFrame(ctx context.Context, frame runtime.Frame) bool {
	for _, pkg := range b.HidePackages {
		if stackutil.InPackage(frame, pkg) {
			return true
		}
	}

	return false
}

// sqlite accepts ?, ?NNN, :name, @name and $name
var placeholderPattern = regexp.MustCompile(`\?[0-9]*|[:@$][A-Za-z_][A-Za-z0-9_]*`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// Interpolate renders query with args substituted for their placeholders.
// It is for reading logs only; the result is not safe to execute.
func Interpolate(query string, args []driver.NamedValue) string {
	next := 0

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(placeholderPattern.ReplaceAllStringFunc(query, func(s string) string {
		var arg *driver.NamedValue

		switch {
		case s == "?":
			if next < len(args) {
				arg = &args[next]
			}
			next++
		case s[0] == '?':
			i, err := strconv.Atoi(s[1:])
			if err == nil && i >= 1 && i <= len(args) {
				arg = &args[i-1]
			}
		default:
			for i := range args {
				if args[i].Name == s[1:] {
					arg = &args[i]
				}
			}
		}

		if arg == nil {
			return s
		}

		return formatValue(arg.Value)
	}), " "))
}

func formatValue(v driver.Value) string {
	switch e := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(e)
	case int64:
		return strconv.FormatInt(e, 10)
	case float64:
		return strconv.FormatFloat(e, 'f', -1, 64)
	case time.Time:
		return "'" + e.Format(time.RFC3339Nano) + "'"
	case []byte:
		if r, ok := printable(string(e)); !ok {
			return fmt.Sprintf("[%d bytes of binary data (%q)]", len(e), r)
		}
		return quote(string(e))
	case string:
		if r, ok := printable(e); !ok {
			return fmt.Sprintf("[%d bytes of binary data (%q)]", len(e), r)
		}
		return quote(e)
	default:
		return quote(fmt.Sprintf("%v", e))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func printable(s string) (rune, bool) {
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}

		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return r, false
		}
	}

	return 0, true
}

package logsvc

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/manabi/core"
)

// RollbarLogger prints every entry to std and reports it to Rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger reports to Rollbar outside of debug and test mode, and always prints to std.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!(conf.Debug || conf.TestMode) && conf.RollbarToken != "")
	return &RollbarLogger{std: std}
}

// entry is a log call split into what Rollbar understands.
type entry struct {
	msg    string
	err    error
	ident  core.Identity
	extras map[string]interface{}
	other  []interface{}
}

// newEntry sorts the args: the first error, the first non-zero Identity, and every extras map merged.
func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg}
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			if e.err == nil {
				e.err = v
				continue
			}
		case core.Identity:
			if e.ident.IsZero() {
				e.ident = v
			}
			continue
		case map[string]interface{}:
			if e.extras == nil {
				e.extras = make(map[string]interface{}, len(v))
			}
			for k, val := range v {
				e.extras[k] = val
			}
			continue
		}
		e.other = append(e.other, arg)
	}
	return e
}

func (e entry) rollbarArgs() []interface{} {
	ctx := context.Background()
	if !e.ident.IsZero() {
		ctx = rollbar.NewPersonContext(ctx, &rollbar.Person{
			Id:       strconv.FormatInt(e.ident.UserID, 10),
			Username: string(e.ident.Role),
			Email:    e.ident.Email,
		})
	}

	args := []interface{}{ctx}
	if e.err != nil {
		args = append(args, e.err)
	} else {
		args = append(args, e.msg)
	}
	extras := make(map[string]interface{}, len(e.extras)+2)
	for k, v := range e.extras {
		extras[k] = v
	}
	if e.err != nil {
		extras["message"] = e.msg
	}
	if len(e.other) > 0 {
		extras["args"] = fmt.Sprint(e.other...)
	}
	if len(extras) > 0 {
		args = append(args, extras)
	}
	return args
}

// line renders the entry as `LEVEL msg key=value ...`, followed by the error and its stack.
func (e entry) line(level string) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(level))
	b.WriteString(" ")
	b.WriteString(e.msg)

	if !e.ident.IsZero() {
		fmt.Fprintf(&b, " user_id=%d role=%s", e.ident.UserID, e.ident.Role)
	}
	keys := make([]string, 0, len(e.extras))
	for k := range e.extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.extras[k])
	}
	for _, o := range e.other {
		fmt.Fprintf(&b, " %v", o)
	}
	if e.err != nil {
		fmt.Fprintf(&b, "\n%+v", e.err)
	}
	return b.String()
}

func (l RollbarLogger) log(level, msg string, args []interface{}) entry {
	e := newEntry(msg, args)
	rollbar.Log(level, e.rollbarArgs()...)
	l.std.Println(e.line(level))
	return e
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}

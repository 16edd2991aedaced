// Package script provides the editor console: a sandboxed zygomys Lisp
// environment whose builtins produce bus commands.
//
// Evaluation never touches the scene. A script yields the list of
// commands it issued, and the caller publishes them in order, so a
// script goes through the same validation and FIFO delivery as the UI.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/roomcraft/pkg/bus"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 5 * time.Second

// EvalError is a non-fatal error in user code, such as a parse error or a
// rejected command.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is the output of one evaluation.
type Result struct {
	Commands []bus.Command
	Errors   []EvalError
	// Value is the printed value of the last form.
	Value string
}

// Console evaluates scripts. It is safe for concurrent use; each call to
// Evaluate runs in a fresh sandbox.
type Console struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	log        *zap.Logger
}

// NewConsole returns a console with the given evaluation timeout.
// timeout <= 0 selects DefaultTimeout.
func NewConsole(timeout time.Duration, logger *zap.Logger) *Console {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{timeout: timeout, log: logger}
}

// Evaluate runs source and returns the commands it issued.
//
// Return semantics:
//   - On success: commands, nil Errors, nil error
//   - On parse/eval failure: no commands, Errors set, nil error
//   - On fatal failure (timeout, panic, superseded): nil result and error
func (c *Console) Evaluate(source string) (*Result, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		res, err := evaluate(source)
		ch <- evalResult{res: res, err: err}
	}()

	res, err := waitWithTimeout(ch, gen, c.timeout, &c.mu, &c.generation)
	if err != nil {
		c.log.Warn("script evaluation failed", zap.Error(err))
		return nil, err
	}
	if len(res.Errors) > 0 {
		c.log.Debug("script rejected", zap.Int("errors", len(res.Errors)))
	}
	return res, nil
}

func evaluate(source string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return &Result{}, nil
	}

	// Sandbox mode keeps user code off the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	var issued []bus.Command
	registerBuiltins(env, &issued)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return &Result{Errors: parseZygomysError(err)}, nil
	}
	last, err := env.Run()
	if err != nil {
		return &Result{Errors: parseZygomysError(err)}, nil
	}
	res := &Result{Commands: issued}
	if last != nil {
		res.Value = last.SexpString(nil)
	}
	return res, nil
}

var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, pulling the
// line number out of the message when there is one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

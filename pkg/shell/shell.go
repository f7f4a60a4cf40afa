// Package shell dispatches named commands against a session.
//
// Commands are what menus, key bindings and the HTTP API trigger: a name
// such as "convert-node" plus an optional string argument. [Dispatcher]
// never panics and never returns an error; every outcome, including an
// unknown command or a crashing handler, is a [Result].
package shell

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/observability"
	"github.com/matzehuels/mdcanvas/pkg/session"
)

// Command is a named request with an optional argument.
type Command struct {
	Name string `json:"name"`
	Arg  string `json:"arg,omitempty"`
}

func (c Command) String() string {
	if c.Arg == "" {
		return c.Name
	}
	return c.Name + " " + c.Arg
}

// Parse splits a command line into name and argument at the first run of
// whitespace.
func Parse(line string) Command {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t\n")
	if i < 0 {
		return Command{Name: line}
	}
	return Command{Name: line[:i], Arg: strings.TrimSpace(line[i+1:])}
}

// Result is the outcome of a command.
type Result struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Node    *codec.NodeSnapshot `json:"node,omitempty"`
	// Code is set on failure.
	Code errors.Code `json:"code,omitempty"`
}

// Handler runs one command.
type Handler func(ctx context.Context, arg string) (Result, error)

// Dispatcher routes commands to handlers.
type Dispatcher struct {
	Logger *log.Logger

	sess     *session.Session
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a dispatcher with the built-in commands registered. A nil
// logger uses the session's logger.
func New(sess *session.Session, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = sess.Logger()
	}
	d := &Dispatcher{
		Logger:   logger,
		sess:     sess,
		handlers: make(map[string]Handler),
	}
	d.registerBuiltins()
	return d
}

// Register adds or replaces a handler.
func (d *Dispatcher) Register(name string, h Handler) error {
	if err := errors.ValidateCommandName(name); err != nil {
		return err
	}
	if h == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil handler for %q", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
	return nil
}

// Names returns the registered command names in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Has reports whether name is registered.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[name]
	return ok
}

// Dispatch runs cmd and reports its outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error("command panicked", "command", cmd.Name, "panic", r)
			res = Result{Message: fmt.Sprintf("%s failed: internal error", cmd.Name), Code: errors.ErrCodeInternal}
		}
		observability.Command().OnCommand(ctx, cmd.Name, res.Success, time.Since(start))
	}()

	d.mu.RLock()
	h, ok := d.handlers[cmd.Name]
	d.mu.RUnlock()
	if !ok {
		return failure(errors.New(errors.ErrCodeUnknownCommand, "unknown command %q", cmd.Name))
	}

	res, err := h(ctx, cmd.Arg)
	if err != nil {
		d.Logger.Debug("command failed", "command", cmd.Name, "err", err)
		return failure(err)
	}
	res.Success = true
	return res
}

func failure(err error) Result {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return Result{Message: errors.UserMessage(err), Code: code}
}

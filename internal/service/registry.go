package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/usecase"
)

// Request carries the context of one command invocation.
type Request struct {
	ChatID   string
	UserID   string
	MsgID    string
	Args     string
	Mentions []string // open_ids mentioned in the message, bot excluded
	DM       bool
}

// HandlerFunc executes a command. The returned string is sent back to the
// chat; a *CommandError becomes a user-facing error message.
type HandlerFunc func(ctx context.Context, req *Request) (string, error)

// Command is a built-in bot command.
type Command struct {
	Name    string
	Level   domain.AccessLevel
	Help    string
	Handler HandlerFunc
}

// CommandError is a user-facing command failure. Its message is sent to the
// chat instead of being logged as an internal error.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

// Registry holds the built-in commands. It is populated at startup and
// read-only afterwards.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command. Registering a duplicate name panics; command names
// are wired once at startup.
func (r *Registry) Register(cmd *Command) {
	if _, ok := r.commands[cmd.Name]; ok {
		panic("duplicate command: " + cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Lookup implements the pipeline's registry interface.
func (r *Registry) Lookup(name string) (usecase.CommandInfo, bool) {
	cmd, ok := r.commands[name]
	if !ok {
		return usecase.CommandInfo{}, false
	}
	return usecase.CommandInfo{Name: cmd.Name, Level: cmd.Level}, true
}

// Names returns all command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs a registered command and returns its reply text. Internal
// errors are wrapped; *CommandError values are turned into reply text.
func (r *Registry) Dispatch(ctx context.Context, name string, req *Request) (string, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return "", fmt.Errorf("command not registered: %s", name)
	}
	reply, err := cmd.Handler(ctx, req)
	if err != nil {
		if cmdErr, ok := err.(*CommandError); ok {
			return cmdErr.Message, nil
		}
		return "", fmt.Errorf("command %s: %w", name, err)
	}
	return reply, nil
}

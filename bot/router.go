package bot

import "context"

// Command is one registered message handler.
type Command interface {
	// CanHandle reports whether this command accepts the message text.
	CanHandle(text string, ec *Context) bool
	Execute(ctx context.Context, ec *Context) error
}

// Router matches inbound text to the first accepting command, in
// registration order. A nil result is not an error; the dispatcher logs
// and drops unmatched messages.
type Router struct {
	commands []Command
}

func NewRouter(commands ...Command) *Router {
	return &Router{commands: commands}
}

func (r *Router) Match(text string, ec *Context) Command {
	for _, c := range r.commands {
		if c.CanHandle(text, ec) {
			return c
		}
	}
	return nil
}

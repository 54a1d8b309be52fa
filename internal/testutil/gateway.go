package testutil

import (
	"context"
	"strings"
	"sync"
)

// Call records one request made to a Gateway.
type Call struct {
	System string
	User   string
	JSON   bool
}

// Gateway is a scripted model gateway. Respond decides the reply for each
// call; it must be safe for concurrent use when the code under test fans out.
type Gateway struct {
	Respond func(system, user string) (string, error)

	mu    sync.Mutex
	calls []Call
}

// Send records the call and returns Respond's reply.
func (g *Gateway) Send(ctx context.Context, system, user string) (string, error) {
	return g.do(ctx, Call{System: system, User: user})
}

// SendJSON records the call as a JSON request and returns Respond's reply.
func (g *Gateway) SendJSON(ctx context.Context, system, user string) (string, error) {
	return g.do(ctx, Call{System: system, User: user, JSON: true})
}

func (g *Gateway) do(ctx context.Context, c Call) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.calls = append(g.calls, c)
	g.mu.Unlock()
	if g.Respond == nil {
		return "", nil
	}
	return g.Respond(c.System, c.User)
}

// Calls returns a copy of every recorded call.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallsContaining counts calls whose system prompt contains marker.
func (g *Gateway) CallsContaining(marker string) int {
	n := 0
	for _, c := range g.Calls() {
		if strings.Contains(c.System, marker) {
			n++
		}
	}
	return n
}

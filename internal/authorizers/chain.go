package authorizers

import (
	"context"
	"errors"

	"github.com/nerval-io/gatehouse/internal/core"
)

var _ core.Authorizer = (*Chain)(nil)

// Chain asks its members in order and returns the first accepting decision.
// A rejection falls through to the next member; if nobody accepts, the last
// rejection wins. Member faults abort the chain immediately.
type Chain struct {
	name    string
	members []core.Authorizer
}

func NewChain(name string, members ...core.Authorizer) *Chain {
	return &Chain{name: name, members: members}
}

func (c *Chain) Name() string {
	return c.name
}

func (c *Chain) Authorize(ctx context.Context, req *core.Request) (*core.Decision, error) {
	if len(c.members) == 0 {
		return nil, errors.New("authorizer chain is empty")
	}

	var last *core.Decision
	for _, member := range c.members {
		decision, err := member.Authorize(ctx, req)
		if err != nil {
			return nil, err
		}
		if !decision.Rejected() {
			return decision, nil
		}
		last = decision
	}
	return last, nil
}

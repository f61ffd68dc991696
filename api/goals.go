package api

import (
	"context"
	"net/http"

	"github.com/pocketledger/pocketledger-go/gateway"
)

// Goal is a savings goal.
type Goal struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	TargetAmount float64 `json:"target_amount"`
	SavedAmount  float64 `json:"saved_amount"`
	Deadline     string  `json:"deadline,omitempty"`
}

// GoalParams are the writable goal fields.
type GoalParams struct {
	Name         string   `json:"name"`
	TargetAmount *float64 `json:"target_amount,omitempty"`
	SavedAmount  *float64 `json:"saved_amount,omitempty"`
	Deadline     *string  `json:"deadline,omitempty"`
}

// GoalsClient accesses the goals resource.
type GoalsClient struct {
	gw *gateway.Client
}

// NewGoalsClient creates a GoalsClient issuing calls through gw.
func NewGoalsClient(gw *gateway.Client) *GoalsClient {
	return &GoalsClient{gw: gw}
}

// List fetches all goals.
func (c *GoalsClient) List(ctx context.Context) ([]Goal, error) {
	out, err := do[[]Goal](ctx, c.gw, getRequest("/goals"))
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Create adds a goal.
func (c *GoalsClient) Create(ctx context.Context, params GoalParams) (*Goal, error) {
	req, err := jsonRequest(http.MethodPost, "/goals", params)
	if err != nil {
		return nil, err
	}
	return do[Goal](ctx, c.gw, req)
}

// Update changes a goal.
func (c *GoalsClient) Update(ctx context.Context, id string, params GoalParams) (*Goal, error) {
	req, err := jsonRequest(http.MethodPut, "/goals/"+id, params)
	if err != nil {
		return nil, err
	}
	return do[Goal](ctx, c.gw, req)
}

// Delete removes a goal.
func (c *GoalsClient) Delete(ctx context.Context, id string) error {
	_, err := do[message](ctx, c.gw, deleteRequest("/goals/"+id))
	return err
}

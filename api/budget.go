package api

import (
	"context"
	"net/http"

	"github.com/pocketledger/pocketledger-go/gateway"
)

// Budget is the user's monthly budget setup.
type Budget struct {
	ID            string  `json:"id"`
	MonthlyIncome float64 `json:"monthly_income"`
	SavingsTarget float64 `json:"savings_target"`
	Currency      string  `json:"currency"`
	Spent         float64 `json:"spent"`
	Remaining     float64 `json:"remaining"`
}

// UpdateBudgetParams are the editable budget fields. Nil fields are left
// unchanged by the server.
type UpdateBudgetParams struct {
	MonthlyIncome *float64 `json:"monthly_income,omitempty"`
	SavingsTarget *float64 `json:"savings_target,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
}

// BudgetClient accesses the budget resource.
type BudgetClient struct {
	gw *gateway.Client
}

// NewBudgetClient creates a BudgetClient issuing calls through gw.
func NewBudgetClient(gw *gateway.Client) *BudgetClient {
	return &BudgetClient{gw: gw}
}

// Get fetches the current budget.
func (c *BudgetClient) Get(ctx context.Context) (*Budget, error) {
	return do[Budget](ctx, c.gw, getRequest("/budget"))
}

// Update changes the budget setup and returns the updated resource.
func (c *BudgetClient) Update(ctx context.Context, params UpdateBudgetParams) (*Budget, error) {
	req, err := jsonRequest(http.MethodPut, "/budget", params)
	if err != nil {
		return nil, err
	}
	return do[Budget](ctx, c.gw, req)
}

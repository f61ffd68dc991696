package api

import (
	"context"
	"net/http"

	"github.com/pocketledger/pocketledger-go/gateway"
)

// Category is a spending category.
type Category struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Allocated float64 `json:"allocated"`
	Spent     float64 `json:"spent"`
}

// CategoryParams are the writable category fields.
type CategoryParams struct {
	Name      string   `json:"name"`
	Icon      string   `json:"icon,omitempty"`
	Allocated *float64 `json:"allocated,omitempty"`
}

// CategoriesClient accesses the categories resource.
type CategoriesClient struct {
	gw *gateway.Client
}

// NewCategoriesClient creates a CategoriesClient issuing calls through gw.
func NewCategoriesClient(gw *gateway.Client) *CategoriesClient {
	return &CategoriesClient{gw: gw}
}

// List fetches all categories.
func (c *CategoriesClient) List(ctx context.Context) ([]Category, error) {
	out, err := do[[]Category](ctx, c.gw, getRequest("/categories"))
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Create adds a category.
func (c *CategoriesClient) Create(ctx context.Context, params CategoryParams) (*Category, error) {
	req, err := jsonRequest(http.MethodPost, "/categories", params)
	if err != nil {
		return nil, err
	}
	return do[Category](ctx, c.gw, req)
}

// Update changes a category.
func (c *CategoriesClient) Update(ctx context.Context, id string, params CategoryParams) (*Category, error) {
	req, err := jsonRequest(http.MethodPut, "/categories/"+id, params)
	if err != nil {
		return nil, err
	}
	return do[Category](ctx, c.gw, req)
}

// Delete removes a category.
func (c *CategoriesClient) Delete(ctx context.Context, id string) error {
	_, err := do[message](ctx, c.gw, deleteRequest("/categories/"+id))
	return err
}

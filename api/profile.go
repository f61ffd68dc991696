package api

import (
	"context"
	"net/http"

	"github.com/pocketledger/pocketledger-go/authapi"
	"github.com/pocketledger/pocketledger-go/gateway"
	"github.com/pocketledger/pocketledger-go/internal/utils"
)

// UpdateProfileParams are the editable profile fields. Nil fields are left
// unchanged by the server.
type UpdateProfileParams struct {
	FullName     *string `json:"full_name,omitempty"`
	MobileNumber *string `json:"mobile_number,omitempty"`
	DateOfBirth  *string `json:"date_of_birth,omitempty"`
}

// WithFullName sets the full name on params.
func (p UpdateProfileParams) WithFullName(name string) UpdateProfileParams {
	p.FullName = utils.Ptr(name)
	return p
}

// WithMobileNumber sets the mobile number on params.
func (p UpdateProfileParams) WithMobileNumber(number string) UpdateProfileParams {
	p.MobileNumber = utils.Ptr(number)
	return p
}

// WithDateOfBirth sets the date of birth on params.
func (p UpdateProfileParams) WithDateOfBirth(dob string) UpdateProfileParams {
	p.DateOfBirth = utils.Ptr(dob)
	return p
}

// ProfileClient accesses the profile resource.
type ProfileClient struct {
	gw *gateway.Client
}

// NewProfileClient creates a ProfileClient issuing calls through gw.
func NewProfileClient(gw *gateway.Client) *ProfileClient {
	return &ProfileClient{gw: gw}
}

// Get fetches the authenticated user's profile.
func (c *ProfileClient) Get(ctx context.Context) (*authapi.UserProfile, error) {
	return do[authapi.UserProfile](ctx, c.gw, getRequest("/profile"))
}

// Update changes profile fields and returns the updated profile.
func (c *ProfileClient) Update(ctx context.Context, params UpdateProfileParams) (*authapi.UserProfile, error) {
	req, err := jsonRequest(http.MethodPut, "/profile", params)
	if err != nil {
		return nil, err
	}
	return do[authapi.UserProfile](ctx, c.gw, req)
}

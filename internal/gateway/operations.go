package gateway

import (
	"context"
	"net/http"
	"net/url"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/users/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the bearer token server-side. The backend expects
// the token in the body, not only in the Authorization header.
func (c *Client) Logout(ctx context.Context, token string) (*Ack, error) {
	var resp Ack
	if err := c.do(WithToken(ctx, token), http.MethodPost, "/users/logout", LogoutRequest{Token: token}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new portal user.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Ack, error) {
	var resp Ack
	if err := c.do(ctx, http.MethodPost, "/users/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserDetails fetches the profile for the given bearer token. The
// backend reads the token from the query string.
func (c *Client) UserDetails(ctx context.Context, token string) (*UserDetails, error) {
	var resp UserDetails
	path := "/users/user-details?token=" + url.QueryEscape(token)
	if err := c.do(WithToken(ctx, token), http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DataPlans fetches the data-plan catalog, returned unmodified.
func (c *Client) DataPlans(ctx context.Context) ([]DataPlan, error) {
	var resp []DataPlan
	if err := c.do(ctx, http.MethodGet, "/packages", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RequestPasswordReset asks the backend to mail a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (*Ack, error) {
	var resp Ack
	if err := c.do(ctx, http.MethodPost, "/users/ask-for-password-reset", PasswordResetRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmPasswordReset redeems a reset token for a new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, req ConfirmResetRequest) (*Ack, error) {
	var resp Ack
	if err := c.do(ctx, http.MethodPost, "/users/confirm-reset-password", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword updates the password of a logged-in user.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*Ack, error) {
	var resp Ack
	if err := c.do(ctx, http.MethodPost, "/users/change-password-authenticated", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddCustomer creates a customer record and returns it as created.
func (c *Client) AddCustomer(ctx context.Context, req NewCustomer) (*Customer, error) {
	var resp Customer
	if err := c.do(ctx, http.MethodPost, "/customers", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchCustomers returns the customers matching a free-text query.
func (c *Client) SearchCustomers(ctx context.Context, query string) (*SearchCustomersResponse, error) {
	var resp SearchCustomersResponse
	if err := c.do(ctx, http.MethodPost, "/customers/search", SearchCustomersRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendContactMessage submits the "Contact Us" form.
func (c *Client) SendContactMessage(ctx context.Context, req ContactMessageRequest) (*Ack, error) {
	var resp Ack
	if err := c.do(ctx, http.MethodPost, "/contact-us-send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

package gateway

// Wire types for the backend REST API. The backend speaks snake_case
// throughout; the JSON tags here are the only place that convention
// appears, callers work with Go names.

// LoginRequest authenticates a user by username or email.
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
	RememberMe      bool   `json:"remember_me"`
}

// LoginResponse carries the bearer token for subsequent calls.
type LoginResponse struct {
	ID     string `json:"id"`
	Token  string `json:"token"`
	Status string `json:"status"`
}

// LogoutRequest invalidates the bearer token server-side.
type LogoutRequest struct {
	Token string `json:"token"`
}

// RegisterRequest creates a new portal user.
type RegisterRequest struct {
	FullName        string `json:"full_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Gender          string `json:"gender"`
	AcceptTerms     bool   `json:"accept_terms"`
}

// UserDetails is the profile record behind /users/user-details.
type UserDetails struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Gender      string `json:"gender"`
}

// DataPlan is one entry of the /packages catalog.
type DataPlan struct {
	ID           int     `json:"id"`
	PackageName  string  `json:"package_name"`
	Description  string  `json:"description"`
	MonthlyPrice float64 `json:"monthly_price"`
}

// PasswordResetRequest asks the backend to mail a reset link.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// ConfirmResetRequest redeems a reset token for a new password.
type ConfirmResetRequest struct {
	ResetToken      string `json:"reset_token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePasswordRequest updates the password of a logged-in user.
type ChangePasswordRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// NewCustomer is the payload for creating a customer record.
type NewCustomer struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number"`
	EmailAddress string `json:"email_address"`
	Address      string `json:"address"`
	PackageID    int    `json:"package_id"`
	Gender       string `json:"gender"`
	UserID       string `json:"user_id"`
}

// Customer is a customer record as the backend returns it.
type Customer struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number"`
	EmailAddress string `json:"email_address"`
	Address      string `json:"address"`
	PackageID    int    `json:"package_id"`
	Gender       string `json:"gender"`
	UserID       string `json:"user_id"`
}

// SearchCustomersRequest filters customers by a free-text query.
type SearchCustomersRequest struct {
	Query string `json:"query"`
}

// SearchCustomersResponse wraps the matching customer records.
type SearchCustomersResponse struct {
	Customers []Customer `json:"customers"`
}

// ContactMessageRequest is the "Contact Us" form payload.
type ContactMessageRequest struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Message  string `json:"message"`
	SendCopy bool   `json:"send_copy"`
}

// Ack is the generic acknowledgement several endpoints return.
// Servers fill whichever of the two fields they use.
type Ack struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

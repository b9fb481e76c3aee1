package models

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDispatcher Role = "dispatcher"
	RoleViewer     Role = "viewer"
)

// CanMutate reports whether the role may edit schedules
func (r Role) CanMutate() bool {
	return r == RoleAdmin || r == RoleDispatcher
}

type User struct {
	ID       int64   `json:"id" validate:"required"`
	Username string  `json:"username" validate:"required"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Role     Role    `json:"role" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}

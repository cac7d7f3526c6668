package models

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPairResponse struct {
	Msg          string `json:"msg"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AccessTokenResponse struct {
	Msg         string `json:"msg"`
	AccessToken string `json:"access_token"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type ResendConfirmationRequest struct {
	Email string `json:"email"`
}

// CreateUserRequest accepts the protected fields only so that their presence can be rejected.
type CreateUserRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Phone        string   `json:"phone"`
	Addresses    []string `json:"addresses"`
	Role         *Role    `json:"role"`
	Confirmed    *bool    `json:"confirmed"`
	AuthProvider *string  `json:"auth_provider"`
	CreatedAt    *string  `json:"created_at"`
}

type UpdateUserRequest struct {
	Name         *string   `json:"name"`
	Email        *string   `json:"email"`
	Password     *string   `json:"password"`
	Phone        *string   `json:"phone"`
	Addresses    *[]string `json:"addresses"`
	Role         *Role     `json:"role"`
	Confirmed    *bool     `json:"confirmed"`
	AuthProvider *string   `json:"auth_provider"`
	CreatedAt    *string   `json:"created_at"`
}

type UserListResponse struct {
	Users   []User `json:"users"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

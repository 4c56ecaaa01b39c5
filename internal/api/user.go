package api

// Admin user management DTOs

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UsersResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Users   []User `json:"users"`
}

type UserResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

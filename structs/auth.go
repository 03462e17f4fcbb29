package structs

type RegisterRequest struct {
	Username    string `json:"username" validate:"min=3,max=50"`
	DisplayName string `json:"displayName" validate:"omitempty,min=2,max=100"`
	Password    string `json:"password" validate:"min=4"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type LoginResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    UserInfo `json:"user"`
}

package dto

type TokenRequest struct {
	UserId string `json:"user_id" validate:"required,min=1,max=256"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

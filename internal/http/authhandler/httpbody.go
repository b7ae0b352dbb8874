package authhandler

type RegisterBody struct {
	Username string `json:"username" binding:"required" example:"magnus"`
	Password string `json:"password" binding:"required" example:"hunter2"`
} // @name RegisterRequest

type LoginBody struct {
	Username string `json:"username" binding:"required" example:"magnus"`
	Password string `json:"password" binding:"required" example:"hunter2"`
} // @name LoginRequest

type CredentialsResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
} // @name CredentialsResponse

type MeResponse struct {
	Username string `json:"username"`
} // @name MeResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

package authapi

// MsgInvalidBody is returned when the login body is not a JSON object.
const MsgInvalidBody = "请求格式无效"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type verifyResponse struct {
	Valid bool   `json:"valid"`
	User  string `json:"user"`
}

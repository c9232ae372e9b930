package session

// Client-facing messages. The editor UI displays these verbatim.
const (
	MsgCredentialsRequired = "用户名和密码必填"
	MsgPasswordTooShort    = "密码至少 6 个字符"
	MsgPasswordTooLong     = "密码过长"
	MsgBadCredentials      = "用户名或密码错误"
	MsgCreateFailed        = "创建用户失败"
	MsgLoginFailed         = "登录失败"
	MsgUnauthorized        = "未授权"
	MsgTokenInvalid        = "Token 无效或已过期"
	MsgServerMisconfigured = "服务器配置错误"
)

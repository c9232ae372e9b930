package workbook

// Client-facing messages. The editor UI displays these verbatim.
const (
	MsgStoreUnbound   = "KV 存储未绑定"
	MsgStoreHint      = "请检查存储后端配置"
	MsgConfigInvalid  = "配置格式无效"
	MsgPageIncomplete = "页面信息不完整"
	MsgColumnsRange   = "列数必须在 1-20 之间"
	MsgConfigGetFail  = "获取配置失败"
	MsgConfigPutFail  = "更新配置失败"
	MsgRowsInvalid    = "数据格式无效"
	MsgRowsGetFail    = "获取数据失败"
	MsgRowsPutFail    = "保存失败"
)

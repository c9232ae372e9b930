package workbookapi

import "encoding/json"

// Success messages shown by the editor.
const (
	MsgConfigSaved = "配置已更新"
	MsgRowsSaved   = "数据已保存"
)

type saveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type rowsRequest struct {
	Rows json.RawMessage `json:"rows"`
}

type rowsResponse struct {
	Success bool `json:"success"`
	Rows    any  `json:"rows"`
}

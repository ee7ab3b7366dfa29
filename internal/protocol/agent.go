package protocol

// AgentInfo 探针注册信息
type AgentInfo struct {
	ID       string `json:"id"`                           // 探针持久化 ID，首次注册可为空
	Name     string `json:"name"`                         // 探针名称
	Hostname string `json:"hostname" validate:"required"` // 主机名
	IP       string `json:"ip"`                           // 探针自报 IP，为空时使用请求来源地址
	OS       string `json:"os"`                           // 操作系统
	Arch     string `json:"arch"`                         // 架构
	Version  string `json:"version"`                      // 探针版本
}

// RegisterResponse 注册结果
type RegisterResponse struct {
	ID string `json:"id"`
}

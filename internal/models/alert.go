package models

// AlertType 告警指标类型
type AlertType string

const (
	AlertTypeCPU    AlertType = "cpu"
	AlertTypeMemory AlertType = "memory"
	AlertTypeDisk   AlertType = "disk"
)

// AlertTypes 参与阈值检查的全部指标类型，按检查顺序排列
var AlertTypes = []AlertType{AlertTypeCPU, AlertTypeMemory, AlertTypeDisk}

var alertTypeNames = map[AlertType]string{
	AlertTypeCPU:    "CPU",
	AlertTypeMemory: "内存",
	AlertTypeDisk:   "磁盘",
}

// Valid 是否为已知的指标类型
func (t AlertType) Valid() bool {
	_, ok := alertTypeNames[t]
	return ok
}

// DisplayName 告警消息中使用的名称
func (t AlertType) DisplayName() string {
	if name, ok := alertTypeNames[t]; ok {
		return name
	}
	return string(t)
}

const (
	AlertStatusFiring   = "firing"
	AlertStatusResolved = "resolved"

	AlertLevelWarning = "warning"
)

// AlertConfig 告警配置
type AlertConfig struct {
	ID        string `gorm:"primaryKey" json:"id"`                  // 告警配置ID (UUID)
	AgentID   string `gorm:"index" json:"agentId"`                  // 探针ID
	Name      string `json:"name" validate:"required,max=255"`      // 告警配置名称
	Enabled   bool   `gorm:"index" json:"enabled"`                  // 是否启用
	CreatedAt int64  `json:"createdAt"`                             // 创建时间（时间戳毫秒）
	UpdatedAt int64  `json:"updatedAt" gorm:"autoUpdateTime:milli"` // 更新时间（时间戳毫秒）

	// 告警规则
	Rules AlertRules `gorm:"embedded;embeddedPrefix:rule_" json:"rules"`
}

func (AlertConfig) TableName() string {
	return "alert_configs"
}

// AlertRules 告警规则
type AlertRules struct {
	// CPU 告警配置
	CPUEnabled   bool    `json:"cpuEnabled"`                            // 是否启用CPU告警
	CPUThreshold float64 `json:"cpuThreshold" validate:"gte=0,lte=100"` // CPU使用率阈值(0-100)
	CPUDuration  int     `json:"cpuDuration"`                           // 持续时间（秒）

	// 内存告警配置
	MemoryEnabled   bool    `json:"memoryEnabled"`                            // 是否启用内存告警
	MemoryThreshold float64 `json:"memoryThreshold" validate:"gte=0,lte=100"` // 内存使用率阈值(0-100)
	MemoryDuration  int     `json:"memoryDuration"`                           // 持续时间（秒）

	// 磁盘告警配置
	DiskEnabled   bool    `json:"diskEnabled"`                            // 是否启用磁盘告警
	DiskThreshold float64 `json:"diskThreshold" validate:"gte=0,lte=100"` // 磁盘使用率阈值(0-100)
	DiskDuration  int     `json:"diskDuration"`                           // 持续时间（秒）
}

// AlertRule 单个指标类型的子规则
type AlertRule struct {
	Enabled   bool
	Threshold float64
	Duration  int
}

var ruleFields = map[AlertType]func(r AlertRules) AlertRule{
	AlertTypeCPU: func(r AlertRules) AlertRule {
		return AlertRule{Enabled: r.CPUEnabled, Threshold: r.CPUThreshold, Duration: r.CPUDuration}
	},
	AlertTypeMemory: func(r AlertRules) AlertRule {
		return AlertRule{Enabled: r.MemoryEnabled, Threshold: r.MemoryThreshold, Duration: r.MemoryDuration}
	},
	AlertTypeDisk: func(r AlertRules) AlertRule {
		return AlertRule{Enabled: r.DiskEnabled, Threshold: r.DiskThreshold, Duration: r.DiskDuration}
	},
}

// Rule 返回指定指标类型的子规则，未知类型返回 false
func (r AlertRules) Rule(t AlertType) (AlertRule, bool) {
	f, ok := ruleFields[t]
	if !ok {
		return AlertRule{}, false
	}
	return f(r), true
}

// AlertRecord 告警记录
type AlertRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`    // 记录ID
	AgentID     string    `gorm:"index" json:"agentId"`                  // 探针ID
	ConfigID    string    `gorm:"index" json:"configId"`                 // 告警配置ID
	ConfigName  string    `json:"configName"`                            // 告警配置名称（触发时冗余）
	AlertType   AlertType `json:"alertType"`                             // 告警类型: cpu, memory, disk
	Message     string    `json:"message"`                               // 告警消息
	Threshold   float64   `json:"threshold"`                             // 告警阈值
	ActualValue float64   `json:"actualValue"`                           // 实际值
	Level       string    `json:"level"`                                 // 告警级别
	Status      string    `gorm:"index" json:"status"`                   // 状态: firing（告警中）, resolved（已恢复）
	FiredAt     int64     `gorm:"index" json:"firedAt"`                  // 触发时间（时间戳毫秒）
	ResolvedAt  int64     `json:"resolvedAt,omitempty"`                  // 恢复时间（时间戳毫秒）
	CreatedAt   int64     `json:"createdAt"`                             // 创建时间（时间戳毫秒）
	UpdatedAt   int64     `json:"updatedAt" gorm:"autoUpdateTime:milli"` // 更新时间（时间戳毫秒）
}

func (AlertRecord) TableName() string {
	return "alert_records"
}

// AlertState 告警检查状态（数据库存储后端使用）
type AlertState struct {
	ID           string `gorm:"primaryKey" json:"id"` // alert_state:{agentId}:{configId}:{type}
	StartTime    int64  `json:"startTime"`
	IsFiring     bool   `json:"isFiring"`
	LastRecordID int64  `json:"lastRecordId"`
	ExpiresAt    int64  `gorm:"index" json:"expiresAt"` // 过期时间（时间戳毫秒）
	UpdatedAt    int64  `json:"updatedAt" gorm:"autoUpdateTime:milli"`
}

func (AlertState) TableName() string {
	return "alert_states"
}

package models

// MetricSnapshot 一次上报中各指标的最新使用率，nil 表示本次没有该指标
type MetricSnapshot struct {
	CPU    *float64 `json:"cpu"`
	Memory *float64 `json:"memory"`
	Disk   *float64 `json:"disk"`
}

// Value 返回指定类型的值
func (s MetricSnapshot) Value(t AlertType) (float64, bool) {
	var v *float64
	switch t {
	case AlertTypeCPU:
		v = s.CPU
	case AlertTypeMemory:
		v = s.Memory
	case AlertTypeDisk:
		v = s.Disk
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Empty 是否没有任何可检查的指标
func (s MetricSnapshot) Empty() bool {
	return s.CPU == nil && s.Memory == nil && s.Disk == nil
}

package service

import (
	"errors"
	"fmt"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError 参数校验失败
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError 是否为参数校验错误
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ValidateAlertConfig 校验告警配置：名称必填，阈值 0-100，启用的规则持续时间至少 1 秒
func ValidateAlertConfig(config *models.AlertConfig) error {
	if err := validate.Struct(config); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return &ValidationError{Message: fmt.Sprintf("字段 %s 校验失败: %s", fe.Field(), fe.Tag())}
		}
		return &ValidationError{Message: err.Error()}
	}

	for _, alertType := range models.AlertTypes {
		rule, _ := config.Rules.Rule(alertType)
		if rule.Enabled && rule.Duration < 1 {
			return &ValidationError{Message: fmt.Sprintf("%s 告警持续时间至少为 1 秒", alertType.DisplayName())}
		}
	}
	return nil
}

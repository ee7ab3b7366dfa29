package id

import (
	"os"
	"path/filepath"
	"strings"
)

// Load 读取持久化的探针 ID，文件不存在时返回空字符串
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save 保存探针 ID，重新安装后仍使用同一个 ID 注册
func Save(path, agentID string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(agentID), 0o600)
}

package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/pika-alert/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidToken       = errors.New("无效的 token")
)

// Claims 登录 token 内容
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginResponse 登录结果
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	Username  string `json:"username"`
}

// AuthService 管理员登录与探针 API Key 校验
type AuthService struct {
	logger *zap.Logger
	cfg    config.AuthConfig
}

func NewAuthService(logger *zap.Logger, cfg config.AuthConfig) *AuthService {
	if cfg.JWT.Secret == "" {
		logger.Warn("未配置 JWT 密钥，管理接口将无法登录")
	}
	// 配置文件经 viper 读取后 map 键会转为小写，用户名统一按小写匹配
	users := make(map[string]string, len(cfg.Users))
	for username, hash := range cfg.Users {
		users[strings.ToLower(username)] = hash
	}
	cfg.Users = users
	return &AuthService{logger: logger, cfg: cfg}
}

// Login 校验用户名密码并签发 token
func (s *AuthService) Login(username, password string) (*LoginResponse, error) {
	username = strings.ToLower(username)
	hash, ok := s.cfg.Users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.Warn("登录失败", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(username)
	if err != nil {
		return nil, err
	}
	s.logger.Info("用户登录成功", zap.String("username", username))
	return &LoginResponse{Token: token, ExpiresAt: expiresAt.UnixMilli(), Username: username}, nil
}

func (s *AuthService) issueToken(username string) (string, time.Time, error) {
	if s.cfg.JWT.Secret == "" {
		return "", time.Time{}, fmt.Errorf("未配置 JWT 密钥")
	}
	hours := s.cfg.JWT.ExpiresHours
	if hours <= 0 {
		hours = 168
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateToken 校验 token 并返回其中的用户信息
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	if s.cfg.JWT.Secret == "" || tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateApiKey 校验探针上报使用的 API Key
func (s *AuthService) ValidateApiKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}
	for _, key := range s.cfg.APIKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return true
		}
	}
	return false
}

// HashPassword 生成 bcrypt 密码，用于填写配置文件
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

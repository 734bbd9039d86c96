package services

import (
	"context"
	"errors"
	"strings"

	"bookclub/internal/auth"
	"bookclub/internal/config"
	"bookclub/internal/models"
	"bookclub/internal/storage"
)

// Login failures are not part of the ErrorKind taxonomy; handlers map them to 401.
var (
	ErrInvalidCredentials = errors.New("无效的用户名或密码")
	ErrUserNotFound       = errors.New("用户未找到")
)

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	Register(ctx context.Context, username, nickname, email, password string) (*models.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (token string, user *models.User, err error)
}

// authService 是 AuthService 的实现。
type authService struct {
	userRepo storage.UserRepository
	authCfg  config.AuthConfig
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo storage.UserRepository, authCfg config.AuthConfig) AuthService {
	return &authService{
		userRepo: userRepo,
		authCfg:  authCfg,
	}
}

// Register 处理用户注册逻辑。
func (s *authService) Register(ctx context.Context, username, nickname, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, newError(KindInvalidRequest, "用户名和密码不能为空")
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, newError(KindDuplicateName, "用户名已存在")
	} else if !storage.IsNotFound(err) {
		return nil, storeError(err, "", "", "检查用户名时出错")
	}

	if email != "" {
		if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
			return nil, newError(KindDuplicateName, "邮箱已存在")
		} else if !storage.IsNotFound(err) {
			return nil, storeError(err, "", "", "检查邮箱时出错")
		}
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, wrapError(KindInvalidRequest, "密码哈希失败", err)
	}

	if nickname == "" {
		nickname = username
	}
	newUser := &models.User{
		Username:     username,
		Nickname:     nickname,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, storeError(err, "", KindDuplicateName, "创建用户失败")
	}
	return newUser, nil
}

// Login 处理用户登录逻辑。
func (s *authService) Login(ctx context.Context, usernameOrEmail, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, usernameOrEmail)
	if storage.IsNotFound(err) {
		// 用户名未找到时尝试邮箱
		user, err = s.userRepo.GetByEmail(ctx, usernameOrEmail)
		if storage.IsNotFound(err) {
			return "", nil, ErrUserNotFound
		}
	}
	if err != nil {
		return "", nil, storeError(err, "", "", "查找用户失败")
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.authCfg)
	if err != nil {
		return "", nil, wrapError(KindStoreUnavailable, "生成令牌失败", err)
	}
	return token, user, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/OscarR093/reportesMtto/internal/config"
	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL endpoint OpenID de perfil
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

const (
	stateKeyPrefix   = "oauth:state:"
	refreshKeyPrefix = "token:refresh:"
	minPasswordLen   = 8
)

// AuthService login con Google o credenciales locales y emisión de JWT
type AuthService struct {
	userRepo    *repository.UserRepository
	store       StateStore
	cfg         *config.Config
	oauth       *oauth2.Config
	userInfoURL string
	logger      *zap.Logger
	now         func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, store StateStore, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		store:    store,
		cfg:      cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: GoogleUserInfoURL,
		logger:      logger,
		now:         time.Now,
	}
}

// TokenPair access + refresh
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// GoogleUserInfo perfil devuelto por Google
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HostedDomain  string `json:"hd"`
}

// RegisterRequest alta con credenciales locales
type RegisterRequest struct {
	Email          string `json:"email" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Password       string `json:"password" binding:"required"`
	EmployeeNumber string `json:"employee_number"`
	Phone          string `json:"phone"`
}

func (s *AuthService) GoogleEnabled() bool {
	return s.cfg.Google.Enabled()
}

// GoogleLoginURL genera un state de un solo uso y la URL de autorización
func (s *AuthService) GoogleLoginURL(ctx context.Context) (string, error) {
	if !s.GoogleEnabled() {
		return "", newError(ErrValidation, "login con Google no configurado")
	}
	state := uuid.New().String()
	if err := s.store.Save(ctx, stateKeyPrefix+state, "1", s.cfg.Google.StateTTL); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// HandleGoogleCallback canjea el código, crea o actualiza al usuario y emite
// tokens sólo si la cuenta está activa. Para cuentas no activas devuelve el
// usuario junto con ErrForbidden.
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code, state string) (*entity.User, *TokenPair, error) {
	if _, err := s.store.Take(ctx, stateKeyPrefix+state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, nil, newError(ErrUnauthorized, "state de OAuth inválido o expirado")
		}
		return nil, nil, fmt.Errorf("read oauth state: %w", err)
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, newError(ErrUnauthorized, "no se pudo canjear el código de Google")
	}
	info, err := s.fetchUserInfo(ctx, tok)
	if err != nil {
		return nil, nil, fmt.Errorf("get user info: %w", err)
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, nil, newError(ErrForbidden, "la cuenta de Google no tiene correo verificado")
	}
	if d := s.cfg.Google.AllowedDomain; d != "" && !strings.HasSuffix(strings.ToLower(info.Email), "@"+strings.ToLower(d)) {
		return nil, nil, newError(ErrForbidden, "sólo se permiten cuentas @%s", d)
	}

	user, err := s.upsertGoogleUser(ctx, info)
	if err != nil {
		return nil, nil, fmt.Errorf("create or update user: %w", err)
	}
	if !user.IsActive() {
		return user, nil, newError(ErrForbidden, "cuenta en estado %s", user.Status)
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *AuthService) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := s.oauth.Client(ctx, tok).Get(s.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("request userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}

func (s *AuthService) isSuperAdminEmail(email string) bool {
	sa := strings.TrimSpace(s.cfg.App.SuperAdminEmail)
	return sa != "" && strings.EqualFold(sa, strings.TrimSpace(email))
}

// upsertGoogleUser busca por google_id y luego por correo para enlazar
// cuentas locales; si no existe la crea en pending
func (s *AuthService) upsertGoogleUser(ctx context.Context, info *GoogleUserInfo) (*entity.User, error) {
	user, err := s.userRepo.FindByGoogleID(ctx, info.Sub)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if user == nil {
		user, err = s.userRepo.FindByEmail(ctx, info.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	now := s.now()
	if user == nil {
		googleID := info.Sub
		user = &entity.User{
			ID:        uuid.New().String(),
			GoogleID:  &googleID,
			Email:     strings.ToLower(info.Email),
			Name:      info.Name,
			AvatarURL: info.Picture,
			Role:      entity.RoleUser,
			Status:    entity.UserStatusPending,
		}
		if s.isSuperAdminEmail(info.Email) {
			user.Role = entity.RoleSuperAdmin
			user.Status = entity.UserStatusActive
			user.ApprovedAt = &now
		}
		if user.IsActive() {
			user.LastLoginAt = &now
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("User registered via Google",
			zap.String("user_id", user.ID),
			zap.String("email", user.Email),
			zap.String("status", user.Status),
		)
		return user, nil
	}

	if user.GoogleID == nil {
		googleID := info.Sub
		user.GoogleID = &googleID
	}
	if info.Name != "" {
		user.Name = info.Name
	}
	if info.Picture != "" {
		user.AvatarURL = info.Picture
	}
	if user.IsActive() {
		user.LastLoginAt = &now
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login credenciales locales
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, *TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, newError(ErrUnauthorized, "correo o contraseña incorrectos")
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, newError(ErrUnauthorized, "correo o contraseña incorrectos")
	}
	if !user.IsActive() {
		return user, nil, newError(ErrForbidden, "cuenta en estado %s", user.Status)
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("update last login: %w", err)
	}
	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// HashPassword bcrypt con costo por defecto
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", newError(ErrValidation, "la contraseña debe tener al menos %d caracteres", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register alta local; queda pendiente de aprobación
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(ErrValidation, "correo inválido")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, newError(ErrValidation, "name es requerido")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, newError(ErrConflict, "el correo %s ya está registrado", email)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user := &entity.User{
		ID:             uuid.New().String(),
		Email:          email,
		Name:           name,
		PasswordHash:   hash,
		EmployeeNumber: strings.TrimSpace(req.EmployeeNumber),
		Phone:          strings.TrimSpace(req.Phone),
		Role:           entity.RoleUser,
		Status:         entity.UserStatusPending,
	}
	if s.isSuperAdminEmail(email) {
		now := s.now()
		user.Role = entity.RoleSuperAdmin
		user.Status = entity.UserStatusActive
		user.ApprovedAt = &now
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// EnsureSuperAdmin crea o promueve la cuenta de super administrador
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, email, name, password string) (*entity.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.PasswordHash = hash
		user.Role = entity.RoleSuperAdmin
		user.Status = entity.UserStatusActive
		user.ApprovedAt = &now
		if name != "" {
			user.Name = name
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return user, nil
	case errors.Is(err, repository.ErrNotFound):
		if name == "" {
			name = email
		}
		user = &entity.User{
			ID:           uuid.New().String(),
			Email:        strings.ToLower(strings.TrimSpace(email)),
			Name:         name,
			PasswordHash: hash,
			Role:         entity.RoleSuperAdmin,
			Status:       entity.UserStatusActive,
			ApprovedAt:   &now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return user, nil
	}
	return nil, fmt.Errorf("find user: %w", err)
}

// generateTokenPair access con identidad y rol; el JTI del refresh se guarda
// en el StateStore para poder revocarlo
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := s.now()

	accessClaims := jwt.MapClaims{
		"sub":    user.ID,
		"uid":    user.ID,
		"name":   user.DisplayName(),
		"email":  user.Email,
		"role":   user.Role,
		"status": user.Status,
		"type":   "access",
		"iss":    s.cfg.JWT.Issuer,
		"iat":    now.Unix(),
		"exp":    now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":    uuid.New().String(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWT.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.store.Save(ctx, refreshKeyPrefix+refreshJti, user.ID, s.cfg.JWT.RefreshTokenExpire); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, nil
}

func (s *AuthService) parseRefresh(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, newError(ErrUnauthorized, "refresh token inválido")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "refresh" {
		return nil, newError(ErrUnauthorized, "refresh token inválido")
	}
	return claims, nil
}

// RefreshToken rota el par: el refresh usado deja de ser válido
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	jti, _ := claims["jti"].(string)
	userID, err := s.store.Take(ctx, refreshKeyPrefix+jti)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, newError(ErrUnauthorized, "refresh token revocado o expirado")
		}
		return nil, fmt.Errorf("read refresh token: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "usuario")
	}
	if !user.IsActive() {
		return nil, newError(ErrForbidden, "cuenta en estado %s", user.Status)
	}
	return s.generateTokenPair(ctx, user)
}

// Logout revoca el refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	jti, _ := claims["jti"].(string)
	return s.store.Delete(ctx, refreshKeyPrefix+jti)
}

// Me perfil del usuario autenticado
func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translateRepoErr(err, "usuario")
	}
	return user, nil
}

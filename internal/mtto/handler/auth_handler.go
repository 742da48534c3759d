package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler login con Google y credenciales locales
type AuthHandler struct {
	svc         *service.AuthService
	frontendURL string
}

func NewAuthHandler(svc *service.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{svc: svc, frontendURL: strings.TrimRight(frontendURL, "/")}
}

func userView(u *entity.User) gin.H {
	return gin.H{
		"id":              u.ID,
		"email":           u.Email,
		"name":            u.Name,
		"display_name":    u.DisplayName(),
		"avatar_url":      u.AvatarURL,
		"employee_number": u.EmployeeNumber,
		"role":            u.Role,
		"status":          u.Status,
		"is_admin":        u.IsAdmin(),
	}
}

func tokenView(user *entity.User, pair *service.TokenPair) gin.H {
	return gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
		"user":          userView(user),
	}
}

// GoogleLogin GET /auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	loginURL, err := h.svc.GoogleLoginURL(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, loginURL)
}

// redirectFrontend redirige al SPA con los parámetros dados en el fragmento
// para que no queden en logs de proxies
func (h *AuthHandler) redirectFrontend(c *gin.Context, path string, params url.Values) {
	c.Redirect(http.StatusFound, h.frontendURL+path+"#"+params.Encode())
}

// GoogleCallback GET /auth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		if h.frontendURL != "" {
			h.redirectFrontend(c, "/login", url.Values{"error": {e}})
			return
		}
		Unauthorized(c, "Google rechazó el acceso: "+e)
		return
	}
	code := c.Query("code")
	if code == "" {
		Error(c, 40001, "Falta el código de autorización")
		return
	}

	user, pair, err := h.svc.HandleGoogleCallback(c.Request.Context(), code, c.Query("state"))
	if h.frontendURL == "" {
		if err != nil {
			HandleError(c, err)
			return
		}
		Success(c, tokenView(user, pair))
		return
	}

	switch {
	case err == nil:
		h.redirectFrontend(c, "/auth/callback", url.Values{
			"access_token":  {pair.AccessToken},
			"refresh_token": {pair.RefreshToken},
		})
	case user != nil && errors.Is(err, service.ErrForbidden):
		// cuenta creada o existente pero sin aprobar
		h.redirectFrontend(c, "/pending-approval", url.Values{"status": {user.Status}})
	default:
		c.Error(err)
		h.redirectFrontend(c, "/login", url.Values{"error": {"auth_failed"}})
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "email y password son requeridos")
		return
	}
	user, pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, tokenView(user, pair))
}

// Register POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Parámetros inválidos: "+err.Error())
		return
	}
	user, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, userView(user))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "refresh_token es requerido")
		return
	}
	pair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	})
}

// Logout POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "refresh_token es requerido")
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// Me GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, userView(user))
}

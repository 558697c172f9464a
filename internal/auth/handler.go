package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

const forgotPasswordMessage = "Se o e-mail estiver cadastrado, você receberá um link para redefinir sua senha."

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name                 string `json:"name" binding:"required,notblank,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
	Institution          string `json:"institution" binding:"max=255"`
	CourseID             *int64 `json:"course_id"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleRequest is the body for POST /auth/google.
type GoogleRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Email                string `json:"email" binding:"required,email"`
	Token                string `json:"token" binding:"required"`
	Password             string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Institution: req.Institution,
		CourseID:    req.CourseID,
	})
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			response.Unprocessable(c, validation.MessageInvalid, map[string][]string{"email": {"Este e-mail já está em uso."}})
			return
		}
		h.logger.Error("register", zap.Error(err))
		response.Internal(c, "Não foi possível concluir o cadastro.")
		return
	}
	response.Created(c, sess)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(c, "E-mail ou senha inválidos.")
			return
		}
		h.logger.Error("login", zap.Error(err))
		response.Internal(c, "Não foi possível entrar.")
		return
	}
	response.OK(c, sess)
}

// Google handles POST /auth/google.
func (h *Handler) Google(c *gin.Context) {
	var req GoogleRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Google(c.Request.Context(), req.IDToken)
	switch {
	case err == nil:
		response.OK(c, sess)
	case errors.Is(err, ErrGoogleDisabled):
		response.ServiceUnavailable(c, "Login com Google indisponível.")
	case errors.Is(err, ErrGoogleToken):
		response.Unauthorized(c, "Token do Google inválido.")
	case errors.Is(err, ErrEmailNotVerified):
		response.Forbidden(c, "O e-mail da conta Google não foi verificado.")
	default:
		h.logger.Error("google login", zap.Error(err))
		response.Internal(c, "Não foi possível entrar com o Google.")
	}
}

// ForgotPassword handles POST /auth/forgot-password. The response never reveals whether
// the email exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.logger.Error("forgot password", zap.Error(err))
	}
	response.Message(c, http.StatusOK, forgotPasswordMessage, nil)
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	err := h.svc.ResetPassword(c.Request.Context(), req.Email, req.Token, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			response.Unprocessable(c, validation.MessageInvalid, map[string][]string{"token": {"Este link de redefinição de senha é inválido ou expirou."}})
			return
		}
		h.logger.Error("reset password", zap.Error(err))
		response.Internal(c, "Não foi possível redefinir a senha.")
		return
	}
	response.Message(c, http.StatusOK, "Senha redefinida com sucesso.", nil)
}

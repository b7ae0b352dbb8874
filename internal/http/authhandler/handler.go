package authhandler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chessmatchgo/internal/services/auth"
)

type Handler struct {
	svc auth.IAuthService
}

func New(svc auth.IAuthService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/api/register", h.register)
	r.POST("/api/login", h.login)
	r.GET("/api/me", h.me)
}

// @Summary		Register a new user
// @Description	Creates an account and returns a signed session token.
// @Tags			Auth
// @Param			body	body		RegisterBody	true	"Credentials"
// @Success		200		{object}	CredentialsResponse
// @Failure		400		{object}	ErrorResponse
// @Router			/api/register [post]
func (h *Handler) register(ginCtx *gin.Context) {
	var body RegisterBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "username and password are required"})
		return
	}

	dto, err := h.svc.Register(ginCtx.Request.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrUserExists) {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, &CredentialsResponse{Username: dto.Username, Token: dto.Token})
}

// @Summary		Log in
// @Description	Verifies credentials and returns a fresh session token.
// @Tags			Auth
// @Param			body	body		LoginBody	true	"Credentials"
// @Success		200		{object}	CredentialsResponse
// @Failure		400		{object}	ErrorResponse
// @Failure		401		{object}	ErrorResponse
// @Router			/api/login [post]
func (h *Handler) login(ginCtx *gin.Context) {
	var body LoginBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "username and password are required"})
		return
	}

	dto, err := h.svc.Login(ginCtx.Request.Context(), body.Username, body.Password)
	if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidPassword) {
		ginCtx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, &CredentialsResponse{Username: dto.Username, Token: dto.Token})
}

// @Summary		Current user
// @Description	Returns the identity behind the supplied bearer token.
// @Tags			Auth
// @Param			Authorization	header		string	true	"Bearer token"
// @Success		200				{object}	MeResponse
// @Failure		401				{object}	ErrorResponse
// @Router			/api/me [get]
func (h *Handler) me(ginCtx *gin.Context) {
	token := strings.TrimPrefix(ginCtx.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		ginCtx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: "missing token"})
		return
	}
	username, err := h.svc.VerifyToken(token)
	if err != nil {
		ginCtx.JSON(http.StatusUnauthorized, &ErrorResponse{Error: "invalid token"})
		return
	}
	ginCtx.JSON(http.StatusOK, &MeResponse{Username: username})
}

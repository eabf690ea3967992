package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"pickup-backend/internal/identity"
	"pickup-backend/internal/middleware"
	"pickup-backend/internal/models"
)

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenSettings configures access token signing.
type TokenSettings struct {
	Secret    string
	AccessTTL time.Duration
	// AllowDispatcherSignup lets anonymous callers register dispatchers.
	AllowDispatcherSignup bool
}

func Signup(ids *identity.Service, tokens TokenSettings, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "AUTH")

		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		role := strings.ToLower(strings.TrimSpace(req.Role))
		if role == models.RoleDispatcher && !tokens.AllowDispatcherSignup && !callerIsDispatcher(c, tokens.Secret) {
			respondWithError(c, logger, http.StatusForbidden, "AUTH", "only dispatchers can register dispatchers")
			return
		}

		account, err := ids.Register(c.Request.Context(), req.Name, req.Email, req.Password, role)
		if err != nil {
			respondServiceError(c, logger, "AUTH", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "User registered successfully",
			"user":    account.Summary(),
		})
	}
}

func Login(ids *identity.Service, tokens TokenSettings, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "AUTH")

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		account, err := ids.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondServiceError(c, logger, "AUTH", err)
			return
		}

		issued, err := issueTokens(c, ids, account, tokens)
		if err != nil {
			respondServiceError(c, logger, "AUTH", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      "Login successful",
			"user":         account.Summary(),
			"accessToken":  issued.AccessToken,
			"refreshToken": issued.RefreshToken,
			"expiresIn":    issued.ExpiresIn,
		})
	}
}

func Refresh(ids *identity.Service, tokens TokenSettings, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "AUTH")

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		account, rotated, err := ids.Rotate(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondServiceError(c, logger, "AUTH", err)
			return
		}

		accessToken, err := middleware.IssueAccessToken(account.ID, account.Email, account.Summary().Role, tokens.Secret, tokens.AccessTTL)
		if err != nil {
			respondServiceError(c, logger, "AUTH", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"accessToken":  accessToken,
			"refreshToken": rotated.Plain,
			"expiresIn":    int64(tokens.AccessTTL.Seconds()),
			"user":         account.Summary(),
		})
	}
}

func Logout(ids *identity.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "AUTH")

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if err := ids.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
			respondServiceError(c, logger, "AUTH", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func GetMe(ids *identity.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, logger, "AUTH")

		accountID, _, ok := middleware.Principal(c)
		if !ok {
			respondWithError(c, logger, http.StatusUnauthorized, "AUTH", "unauthorized")
			return
		}

		account, err := ids.Account(c.Request.Context(), accountID)
		if err != nil {
			respondServiceError(c, logger, "AUTH", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":        account.ID.Hex(),
			"name":      account.Name,
			"email":     account.Email,
			"role":      account.Summary().Role,
			"createdAt": account.CreatedAt,
			"updatedAt": account.UpdatedAt,
		})
	}
}

func issueTokens(c *gin.Context, ids *identity.Service, account *models.Account, tokens TokenSettings) (*AuthTokens, error) {
	accessToken, err := middleware.IssueAccessToken(account.ID, account.Email, account.Summary().Role, tokens.Secret, tokens.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := ids.IssueRefresh(c.Request.Context(), account.ID)
	if err != nil {
		return nil, err
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refresh.Plain,
		ExpiresIn:    int64(tokens.AccessTTL.Seconds()),
	}, nil
}

func callerIsDispatcher(c *gin.Context, secret string) bool {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	claims, err := middleware.ParseAccessToken(parts[1], secret)
	if err != nil {
		return false
	}
	role, _ := claims["role"].(string)
	userID, _ := claims["userId"].(string)
	_, idErr := primitive.ObjectIDFromHex(userID)
	return role == models.RoleDispatcher && idErr == nil
}

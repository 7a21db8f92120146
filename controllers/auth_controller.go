package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthController delegates to the session's auth mirror.
type AuthController struct{}

func NewAuthController() *AuthController {
	return &AuthController{}
}

func (h *AuthController) SignUp(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if err := sess.Auth.SignUp(c.Request.Context(), req.Email, req.Password, req.FullName); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Account created. You can now sign in."})
}

func (h *AuthController) SignIn(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if err := sess.Auth.SignIn(c.Request.Context(), req.Email, req.Password); err != nil {
		fail(c, err)
		return
	}
	h.Session(c)
}

func (h *AuthController) SignOut(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	if err := sess.Auth.SignOut(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Session reports the mirrored user, session and profile.
func (h *AuthController) Session(c *gin.Context) {
	sess, ok := shopperSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": sess.Auth.IsAuthenticated(),
		"loading":       sess.Auth.Loading(),
		"user":          sess.Auth.User(),
		"session":       sess.Auth.Session(),
		"profile":       sess.Auth.Profile(),
	})
}

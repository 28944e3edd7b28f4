package controllers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/middleware"
	"github.com/vnkhanh/yearbook-server/models"
	"github.com/vnkhanh/yearbook-server/utils"
	"google.golang.org/api/idtoken"
)

type RegisterStaffReq struct {
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func RegisterStaff(c *gin.Context) {
	var req RegisterStaffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	var count int64
	config.DB.Model(&models.StaffUser{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Email already registered"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot hash password"})
		return
	}

	user := models.StaffUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
	}

	if err := config.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	var user models.StaffUser
	if err := config.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong email or password"})
		return
	}
	if user.Password == "" || !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong email or password"})
		return
	}

	role := "staff"
	if user.IsAdmin {
		role = "admin"
	}
	token, err := utils.GenerateToken(fmt.Sprintf("%d", user.ID), role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type GoogleLoginReq struct {
	IDToken string `json:"id_token" binding:"required"`
}

// GoogleLoginHandler verifies a Google ID token and signs the matching
// staff account in, creating it on first sight.
func GoogleLoginHandler(c *gin.Context) {
	var req GoogleLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	payload, err := idtoken.Validate(context.Background(), req.IDToken, clientID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid Google token"})
		return
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Google token has no email"})
		return
	}
	if name == "" {
		name = email
	}

	var user models.StaffUser
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		user = models.StaffUser{Name: name, Email: email}
		if err := config.DB.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create account"})
			return
		}
	}

	role := "staff"
	if user.IsAdmin {
		role = "admin"
	}
	token, err := utils.GenerateToken(fmt.Sprintf("%d", user.ID), role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func Me(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.StaffUser)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

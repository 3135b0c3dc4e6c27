package handlers

import (
	"campuslink/internal/db"
	"campuslink/internal/middleware"
	"campuslink/internal/models"
	"campuslink/internal/services"
	"campuslink/internal/utils"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Year       int    `json:"year"`
}

// userResponse 对外的用户信息，永远不带密码
func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"department": user.Department,
		"year":       user.Year,
		"avatar":     user.Avatar,
		"bio":        user.Bio,
		"college": gin.H{
			"id":      user.College.ID,
			"name":    user.College.Name,
			"city":    user.College.City,
			"state":   user.College.State,
			"country": user.College.Country,
		},
		"stats": gin.H{
			"questionsAsked":   user.QuestionsAsked,
			"answersGiven":     user.AnswersGiven,
			"bestAnswersCount": user.BestAnswersCount,
		},
	}
}

// Register 注册新用户，按邮箱域名路由到所属学校
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.Department = strings.TrimSpace(req.Department)

	if req.Name == "" || req.Email == "" || req.Password == "" || req.Department == "" {
		Fail(c, http.StatusBadRequest, "Please provide all required fields")
		return
	}
	if !utils.IsValidEmail(req.Email) {
		Fail(c, http.StatusBadRequest, "Please provide a valid email")
		return
	}
	if len(req.Password) < 6 {
		Fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleFaculty {
		// 管理员走种子或后台，不开放注册
		Fail(c, http.StatusBadRequest, "Invalid role")
		return
	}
	if role == models.RoleStudent && (req.Year < 1 || req.Year > 6) {
		Fail(c, http.StatusBadRequest, "Please provide a valid year (1-6) for students")
		return
	}

	// 已注册邮箱直接拒绝
	var existing models.User
	if err := db.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		Fail(c, http.StatusBadRequest, "User with this email already exists")
		return
	}

	// 按邮箱域名找学校
	domain := utils.EmailDomain(req.Email)
	var college models.College
	if err := db.DB.Where("email_domain = ?", domain).First(&college).Error; err != nil {
		Fail(c, http.StatusBadRequest, fmt.Sprintf("College with domain %s is not registered. Please contact admin.", domain))
		return
	}
	if !college.IsActive {
		Fail(c, http.StatusBadRequest, "This college is currently inactive. Please contact admin.")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Server error during registration")
		return
	}

	year := req.Year
	if role != models.RoleStudent {
		year = 0
	}

	user := models.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   hash,
		CollegeID:  college.ID,
		Role:       role,
		Department: req.Department,
		Year:       year,
		IsActive:   true,
	}

	// 建用户和学校人数计数器同一事务
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return services.BumpCollegeStudents(tx, college.ID, 1)
	})
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Server error during registration")
		return
	}
	user.College = college

	token, err := middleware.GenerateToken(user.ID)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Server error during registration")
		return
	}

	OK(c, http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    userResponse(&user),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 邮箱密码登录，签发 JWT
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		Fail(c, http.StatusBadRequest, "Please provide email and password")
		return
	}

	var user models.User
	if err := db.DB.Preload("College").
		Where("email = ?", strings.ToLower(req.Email)).
		First(&user).Error; err != nil {
		Fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		Fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !user.IsActive {
		Fail(c, http.StatusUnauthorized, "Account is deactivated. Please contact admin.")
		return
	}
	if !user.College.IsActive {
		Fail(c, http.StatusUnauthorized, "Your college is currently inactive. Please contact admin.")
		return
	}

	token, err := middleware.GenerateToken(user.ID)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "Server error during login")
		return
	}

	OK(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    userResponse(&user),
	})
}

// Me 返回当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)

	resp := gin.H{"user": userResponse(user)}
	if count, ok := c.Get(middleware.UnreadCountKey); ok {
		resp["unreadNotifications"] = count
	}
	OK(c, http.StatusOK, resp)
}

type profileRequest struct {
	Name       string `json:"name"`
	Bio        string `json:"bio"`
	Department string `json:"department"`
	Year       int    `json:"year"`
	Avatar     string `json:"avatar"`
}

// UpdateProfile 修改个人资料，邮箱和角色不允许改
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = strings.TrimSpace(req.Name)
	}
	if req.Bio != user.Bio {
		updates["bio"] = req.Bio
	}
	if req.Department != "" {
		updates["department"] = strings.TrimSpace(req.Department)
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}
	if req.Year != 0 && user.IsStudent() {
		if req.Year < 1 || req.Year > 6 {
			Fail(c, http.StatusBadRequest, "Year must be between 1 and 6")
			return
		}
		updates["year"] = req.Year
	}

	if len(updates) > 0 {
		if err := db.DB.Model(user).Updates(updates).Error; err != nil {
			Fail(c, http.StatusInternalServerError, "Server error while updating profile")
			return
		}
	}

	OK(c, http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    userResponse(user),
	})
}

// Logout JWT 无状态，登出由客户端丢弃 token
func (h *AuthHandler) Logout(c *gin.Context) {
	OK(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

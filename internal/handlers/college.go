package handlers

import (
	"campuslink/internal/db"
	"campuslink/internal/middleware"
	"campuslink/internal/models"
	"campuslink/internal/utils"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type CollegeHandler struct{}

func NewCollegeHandler() *CollegeHandler {
	return &CollegeHandler{}
}

// List 学校目录，注册页下拉框用
// 默认只列活跃学校，支持按名称/域名/城市搜索
func (h *CollegeHandler) List(c *gin.Context) {
	page, limit, offset := ParsePagination(c, 50, 100)
	search := strings.TrimSpace(c.Query("search"))
	state := strings.TrimSpace(c.Query("state"))
	country := strings.TrimSpace(c.Query("country"))
	isActive := c.Query("isActive")

	// 无过滤条件的第一页走缓存，这是注册页的热点请求
	cacheKey := fmt.Sprintf("colleges:list:page:%d:limit:%d", page, limit)
	cacheable := search == "" && state == "" && country == "" && isActive == ""
	if cacheable {
		if cached := utils.GetCache().Get(cacheKey); cached != nil {
			if data, ok := cached.(gin.H); ok {
				// 缓存的 map 被并发请求共享，只读序列化，不能再写
				c.JSON(http.StatusOK, data)
				return
			}
		}
	}

	query := db.DB.Model(&models.College{})

	switch isActive {
	case "", "true":
		query = query.Where("is_active = ?", true)
	case "false":
		query = query.Where("is_active = ?", false)
	case "all":
		// 不过滤
	}

	if state != "" {
		query = query.Where("LOWER(state) LIKE ?", "%"+strings.ToLower(state)+"%")
	}
	if country != "" {
		query = query.Where("LOWER(country) LIKE ?", "%"+strings.ToLower(country)+"%")
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email_domain) LIKE ? OR LOWER(city) LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	var colleges []models.College
	query.Order("total_students DESC, name ASC").
		Limit(limit).
		Offset(offset).
		Find(&colleges)

	// success 在入缓存前就写好，之后这个 map 只读
	data := gin.H{
		"success":    true,
		"colleges":   colleges,
		"pagination": PageMeta(total, page, limit),
	}

	if cacheable {
		utils.GetCache().Set(cacheKey, data, 5*time.Minute)
	}
	c.JSON(http.StatusOK, data)
}

// Search 自动补全，返回前 10 个匹配学校
func (h *CollegeHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		Fail(c, http.StatusBadRequest, "Search query must be at least 2 characters")
		return
	}

	like := "%" + strings.ToLower(q) + "%"
	var colleges []models.College
	db.DB.Where("is_active = ?", true).
		Where("LOWER(name) LIKE ? OR LOWER(email_domain) LIKE ?", like, like).
		Order("total_students DESC").
		Limit(10).
		Find(&colleges)

	OK(c, http.StatusOK, gin.H{"colleges": colleges})
}

// collegeStats 统计某学校的活跃学生/教师/问题数（按需聚合，不读冗余计数器）
func collegeStats(collegeID uint) gin.H {
	var students, faculty, questions int64
	db.DB.Model(&models.User{}).
		Where("college_id = ? AND role = ? AND is_active = ?", collegeID, models.RoleStudent, true).
		Count(&students)
	db.DB.Model(&models.User{}).
		Where("college_id = ? AND role = ? AND is_active = ?", collegeID, models.RoleFaculty, true).
		Count(&faculty)
	db.DB.Model(&models.Question{}).Where("college_id = ?", collegeID).Count(&questions)

	return gin.H{
		"students":  students,
		"faculty":   faculty,
		"questions": questions,
	}
}

// Get 单个学校详情
func (h *CollegeHandler) Get(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var college models.College
	if err := db.DB.First(&college, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "College not found")
		return
	}

	OK(c, http.StatusOK, gin.H{
		"college": college,
		"stats":   collegeStats(college.ID),
	})
}

// MyCollege 当前用户所属学校详情
func (h *CollegeHandler) MyCollege(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var college models.College
	if err := db.DB.First(&college, user.CollegeID).Error; err != nil {
		Fail(c, http.StatusNotFound, "Your college information not found")
		return
	}

	OK(c, http.StatusOK, gin.H{
		"college": college,
		"stats":   collegeStats(college.ID),
	})
}

type collegeRequest struct {
	Name        string `json:"name"`
	EmailDomain string `json:"email_domain"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	IsActive    *bool  `json:"is_active"`
}

// Create 管理员录入新学校
func (h *CollegeHandler) Create(c *gin.Context) {
	var req collegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.EmailDomain = strings.ToLower(strings.TrimSpace(req.EmailDomain))
	if req.Name == "" || req.EmailDomain == "" || req.City == "" || req.State == "" || req.Country == "" {
		Fail(c, http.StatusBadRequest, "Please provide all required fields")
		return
	}

	college := models.College{
		Name:        req.Name,
		EmailDomain: req.EmailDomain,
		City:        strings.TrimSpace(req.City),
		State:       strings.TrimSpace(req.State),
		Country:     strings.TrimSpace(req.Country),
		IsActive:    true,
	}
	if err := db.DB.Create(&college).Error; err != nil {
		// 名称或域名撞了唯一索引
		Fail(c, http.StatusBadRequest, "College with this name or email domain already exists")
		return
	}

	utils.GetCache().Flush()

	OK(c, http.StatusCreated, gin.H{
		"message": "College created successfully",
		"college": college,
	})
}

// Update 管理员修改学校信息
func (h *CollegeHandler) Update(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var college models.College
	if err := db.DB.First(&college, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "College not found")
		return
	}

	var req collegeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = strings.TrimSpace(req.Name)
	}
	if req.EmailDomain != "" {
		updates["email_domain"] = strings.ToLower(strings.TrimSpace(req.EmailDomain))
	}
	if req.City != "" {
		updates["city"] = strings.TrimSpace(req.City)
	}
	if req.State != "" {
		updates["state"] = strings.TrimSpace(req.State)
	}
	if req.Country != "" {
		updates["country"] = strings.TrimSpace(req.Country)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := db.DB.Model(&college).Updates(updates).Error; err != nil {
			Fail(c, http.StatusInternalServerError, "Server error while updating college")
			return
		}
	}

	utils.GetCache().Flush()

	OK(c, http.StatusOK, gin.H{
		"message": "College updated successfully",
		"college": college,
	})
}

// Delete 管理员删除学校，还有活跃用户时拒绝（应改用停用）
func (h *CollegeHandler) Delete(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var college models.College
	if err := db.DB.First(&college, id).Error; err != nil {
		Fail(c, http.StatusNotFound, "College not found")
		return
	}

	var activeUsers int64
	db.DB.Model(&models.User{}).
		Where("college_id = ? AND is_active = ?", id, true).
		Count(&activeUsers)
	if activeUsers > 0 {
		Fail(c, http.StatusBadRequest,
			fmt.Sprintf("Cannot delete college. It has %d active users. Please deactivate the college instead.", activeUsers))
		return
	}

	if err := db.DB.Delete(&college).Error; err != nil {
		Fail(c, http.StatusInternalServerError, "Server error while deleting college")
		return
	}

	utils.GetCache().Flush()

	OK(c, http.StatusOK, gin.H{"message": "College deleted successfully"})
}

// Stats 管理员总览统计
func (h *CollegeHandler) Stats(c *gin.Context) {
	var totalColleges, activeColleges, totalUsers, totalQuestions int64
	db.DB.Model(&models.College{}).Count(&totalColleges)
	db.DB.Model(&models.College{}).Where("is_active = ?", true).Count(&activeColleges)
	db.DB.Model(&models.User{}).Where("is_active = ?", true).Count(&totalUsers)
	db.DB.Model(&models.Question{}).Count(&totalQuestions)

	// 活跃度最高的 10 所学校
	type topCollege struct {
		ID            uint   `json:"id"`
		Name          string `json:"name"`
		EmailDomain   string `json:"email_domain"`
		UserCount     int64  `json:"user_count"`
		QuestionCount int64  `json:"question_count"`
	}
	var top []topCollege
	db.DB.Model(&models.College{}).
		Select(`colleges.id, colleges.name, colleges.email_domain,
			(SELECT COUNT(*) FROM users WHERE users.college_id = colleges.id) AS user_count,
			(SELECT COUNT(*) FROM questions WHERE questions.college_id = colleges.id) AS question_count`).
		Where("colleges.is_active = ?", true).
		Order("user_count + question_count DESC").
		Limit(10).
		Scan(&top)

	OK(c, http.StatusOK, gin.H{
		"stats": gin.H{
			"overview": gin.H{
				"totalColleges":  totalColleges,
				"activeColleges": activeColleges,
				"totalUsers":     totalUsers,
				"totalQuestions": totalQuestions,
			},
			"topColleges": top,
		},
	})
}

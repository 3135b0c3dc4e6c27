package handlers

import (
	"bytes"
	"campuslink/internal/db"
	"campuslink/internal/middleware"
	"campuslink/internal/models"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	apiOnce   sync.Once
	apiRouter *gin.Engine
)

// setupAPI 整个测试进程共享一个内存库和路由
// （服务层单例绑定全局连接，只能初始化一次）
func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()

	apiOnce.Do(func() {
		d, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			panic(fmt.Sprintf("Failed to open test db: %v", err))
		}
		sqlDB, err := d.DB()
		if err != nil {
			panic(fmt.Sprintf("Failed to get sql db: %v", err))
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Migrate(d); err != nil {
			panic(fmt.Sprintf("Failed to migrate test db: %v", err))
		}
		db.DB = d

		gin.SetMode(gin.TestMode)
		r := gin.New()

		authHandler := NewAuthHandler()
		questionHandler := NewQuestionHandler()
		answerHandler := NewAnswerHandler()
		collegeHandler := NewCollegeHandler()
		reportHandler := NewReportHandler()

		api := r.Group("/api")
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/colleges", collegeHandler.List)

		authorized := api.Group("/")
		authorized.Use(middleware.AuthRequired())
		{
			authorized.GET("/auth/me", authHandler.Me)
			authorized.POST("/questions", questionHandler.Create)
			authorized.GET("/questions/:id", questionHandler.Detail)
			authorized.DELETE("/questions/:id", questionHandler.Delete)
			authorized.POST("/questions/:id/resolve", questionHandler.Resolve)
			authorized.POST("/answers/question/:questionId", answerHandler.Create)
			authorized.POST("/answers/:id/helpful", answerHandler.MarkHelpful)
			authorized.DELETE("/answers/:id/helpful", answerHandler.RemoveHelpful)
			authorized.POST("/answers/:id/best", answerHandler.SetBest)
			authorized.POST("/report/:type/:id", reportHandler.Report)
		}

		apiRouter = r
	})
	return apiRouter
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := map[string]interface{}{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func seedCollege(t *testing.T, domain string) *models.College {
	t.Helper()
	college := models.College{
		Name:        "College " + domain,
		EmailDomain: domain,
		City:        "Mumbai",
		State:       "Maharashtra",
		Country:     "India",
		IsActive:    true,
	}
	if err := db.DB.Create(&college).Error; err != nil {
		t.Fatalf("Failed to seed college: %v", err)
	}
	return &college
}

func registerUser(t *testing.T, r *gin.Engine, name, email string) string {
	t.Helper()
	w, resp := doRequest(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":       name,
		"email":      email,
		"password":   "secret123",
		"department": "CS",
		"year":       2,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Register %s failed: %d %v", email, w.Code, resp)
	}
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("Expected token in register response, got %v", resp)
	}
	return token
}

func TestAuthEndpoints(t *testing.T) {
	r := setupAPI(t)
	seedCollege(t, "auth.edu")

	token := registerUser(t, r, "Ravi", "ravi@auth.edu")

	// 重复注册同一邮箱
	w, resp := doRequest(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ravi2", "email": "ravi@auth.edu", "password": "secret123", "department": "CS", "year": 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate email, got %d %v", w.Code, resp)
	}

	// 未登记的邮箱域名
	w, _ = doRequest(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Nobody", "email": "x@unknown.edu", "password": "secret123", "department": "CS", "year": 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown domain, got %d", w.Code)
	}

	// 密码错误
	w, _ = doRequest(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ravi@auth.edu", "password": "wrong-pass",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad password, got %d", w.Code)
	}

	// 正常登录
	w, resp = doRequest(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ravi@auth.edu", "password": "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 login, got %d %v", w.Code, resp)
	}
	if success, _ := resp["success"].(bool); !success {
		t.Errorf("Expected success=true, got %v", resp)
	}

	// 带 token 访问 me
	w, resp = doRequest(t, r, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /auth/me, got %d %v", w.Code, resp)
	}
	user, _ := resp["user"].(map[string]interface{})
	if user["email"] != "ravi@auth.edu" {
		t.Errorf("Expected own profile, got %v", user)
	}

	// 不带 token 被拒
	w, _ = doRequest(t, r, http.MethodGet, "/api/auth/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
}

func TestQuestionAnswerLifecycle(t *testing.T) {
	r := setupAPI(t)
	seedCollege(t, "life.edu")

	askerToken := registerUser(t, r, "Asker", "asker@life.edu")
	answererToken := registerUser(t, r, "Answerer", "answerer@life.edu")
	markerToken := registerUser(t, r, "Marker", "marker@life.edu")

	// 发问题
	w, resp := doRequest(t, r, http.MethodPost, "/api/questions", askerToken, gin.H{
		"title":    "Best mess food on campus?",
		"content":  "New here, where do people actually eat?",
		"category": "campus-info",
		"tags":     []string{"Food", " mess "},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create question failed: %d %v", w.Code, resp)
	}
	question, _ := resp["question"].(map[string]interface{})
	questionID := uint(question["id"].(float64))

	// 回答
	w, resp = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/answers/question/%d", questionID), answererToken, gin.H{
		"content": "North canteen, hands down.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create answer failed: %d %v", w.Code, resp)
	}
	answer, _ := resp["answer"].(map[string]interface{})
	answerID := uint(answer["id"].(float64))

	// 第三人标 helpful
	w, resp = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/answers/%d/helpful", answerID), markerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("MarkHelpful failed: %d %v", w.Code, resp)
	}
	if count, _ := resp["helpfulCount"].(float64); count != 1 {
		t.Errorf("Expected helpfulCount=1, got %v", resp["helpfulCount"])
	}

	// 重复标记
	w, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/answers/%d/helpful", answerID), markerToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate helpful, got %d", w.Code)
	}

	// 回答作者自己标 helpful
	w, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/answers/%d/helpful", answerID), answererToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for self helpful, got %d", w.Code)
	}

	// 非提问者选最佳
	w, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/answers/%d/best", answerID), answererToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-author best, got %d", w.Code)
	}

	// 提问者选最佳
	w, resp = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/answers/%d/best", answerID), askerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("SetBest failed: %d %v", w.Code, resp)
	}
	q, _ := resp["question"].(map[string]interface{})
	if resolved, _ := q["is_resolved"].(bool); !resolved {
		t.Errorf("Expected question resolved, got %v", q)
	}

	// 详情里最佳回答要带标记，回答作者计数 +1
	w, resp = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/questions/%d", questionID), markerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Detail failed: %d %v", w.Code, resp)
	}
	q, _ = resp["question"].(map[string]interface{})
	answers, _ := q["answers"].([]interface{})
	if len(answers) != 1 {
		t.Fatalf("Expected 1 answer in detail, got %d", len(answers))
	}
	first, _ := answers[0].(map[string]interface{})
	if best, _ := first["is_best_answer"].(bool); !best {
		t.Errorf("Expected best answer flagged in detail, got %v", first)
	}

	var answerer models.User
	db.DB.Where("email = ?", "answerer@life.edu").First(&answerer)
	if answerer.BestAnswersCount != 1 {
		t.Errorf("Expected bestAnswersCount=1, got %d", answerer.BestAnswersCount)
	}

	// 提问者删问题，级联清理
	w, _ = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/questions/%d", questionID), askerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Delete question failed: %d", w.Code)
	}
	var left int64
	db.DB.Model(&models.Answer{}).Where("question_id = ?", questionID).Count(&left)
	if left != 0 {
		t.Errorf("Expected answers cascaded, %d left", left)
	}
}

// 目录列表的缓存命中走并发请求，响应必须完整且共享数据不能被改写
func TestCollegeListConcurrentCacheHits(t *testing.T) {
	r := setupAPI(t)
	seedCollege(t, "cache.edu")

	// 先打一次填缓存
	w, resp := doRequest(t, r, http.MethodGet, "/api/colleges", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Warmup list failed: %d %v", w.Code, resp)
	}
	if success, _ := resp["success"].(bool); !success {
		t.Fatalf("Expected success=true on warmup, got %v", resp)
	}

	type result struct {
		code    int
		success bool
	}
	results := make(chan result, 16)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/colleges", nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			body := map[string]interface{}{}
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			success, _ := body["success"].(bool)
			results <- result{code: rec.Code, success: success}
		}()
	}
	wg.Wait()
	close(results)

	for res := range results {
		if res.code != http.StatusOK {
			t.Errorf("Expected 200 on cached list, got %d", res.code)
		}
		if !res.success {
			t.Error("Expected success=true on cached list response")
		}
	}
}

// 举报别校内容一律拒绝，问题和回答同一个口径
func TestReportCrossCollege(t *testing.T) {
	r := setupAPI(t)
	seedCollege(t, "repa.edu")
	seedCollege(t, "repb.edu")

	askerToken := registerUser(t, r, "RepAsker", "asker@repa.edu")
	answererToken := registerUser(t, r, "RepAnswerer", "answerer@repa.edu")
	outsiderToken := registerUser(t, r, "RepOutsider", "outsider@repb.edu")

	w, resp := doRequest(t, r, http.MethodPost, "/api/questions", askerToken, gin.H{
		"title":    "Spam check",
		"content":  "Totally legit question.",
		"category": "general",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create question failed: %d %v", w.Code, resp)
	}
	question, _ := resp["question"].(map[string]interface{})
	questionID := uint(question["id"].(float64))

	w, resp = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/answers/question/%d", questionID), answererToken, gin.H{
		"content": "Looks like spam to me.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create answer failed: %d %v", w.Code, resp)
	}
	answer, _ := resp["answer"].(map[string]interface{})
	answerID := uint(answer["id"].(float64))

	// 别校用户举报问题
	w, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/report/question/%d", questionID), outsiderToken, gin.H{
		"reason": "spam",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for cross-college question report, got %d", w.Code)
	}

	// 别校用户举报回答
	w, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/report/answer/%d", answerID), outsiderToken, gin.H{
		"reason": "spam",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for cross-college answer report, got %d", w.Code)
	}

	var reported models.Answer
	db.DB.First(&reported, answerID)
	if reported.IsReported {
		t.Error("Expected answer untouched after rejected report")
	}

	// 同校用户举报回答正常走通
	w, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/report/answer/%d", answerID), askerToken, gin.H{
		"reason": "rude",
	})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for same-college answer report, got %d", w.Code)
	}
	db.DB.First(&reported, answerID)
	if !reported.IsReported {
		t.Error("Expected answer flagged after same-college report")
	}
}

func TestResolveWithoutAnswerHTTP(t *testing.T) {
	r := setupAPI(t)
	seedCollege(t, "res.edu")

	askerToken := registerUser(t, r, "Solo", "solo@res.edu")

	w, resp := doRequest(t, r, http.MethodPost, "/api/questions", askerToken, gin.H{
		"title":    "Figured it out myself",
		"content":  "Never mind, solved it.",
		"category": "general",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Create question failed: %d %v", w.Code, resp)
	}
	question, _ := resp["question"].(map[string]interface{})
	questionID := uint(question["id"].(float64))

	// 空请求体：只置已解决，不选最佳
	w, resp = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/questions/%d/resolve", questionID), askerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Resolve failed: %d %v", w.Code, resp)
	}
	q, _ := resp["question"].(map[string]interface{})
	if resolved, _ := q["is_resolved"].(bool); !resolved {
		t.Errorf("Expected question resolved, got %v", q)
	}
	if q["best_answer_id"] != nil {
		t.Errorf("Expected no best answer, got %v", q["best_answer_id"])
	}
}

package services

import (
	"campuslink/internal/db"
	"campuslink/internal/models"
	"campuslink/internal/utils"
	"log"
	"sync"
	"time"
)

// HotnessService 异步计算并更新问题热度分，热度榜按 hot_score 排序
type HotnessService struct {
	queue   chan uint // 待更新的问题 ID 队列
	pending map[uint]bool
	mu      sync.Mutex
}

var (
	hotnessService *HotnessService
	hotnessOnce    sync.Once
)

// GetHotnessService 获取单例热度服务
func GetHotnessService() *HotnessService {
	hotnessOnce.Do(func() {
		hotnessService = &HotnessService{
			queue:   make(chan uint, 1000), // 缓冲队列，防止阻塞
			pending: make(map[uint]bool),
		}
		// 启动后台 worker
		go hotnessService.worker()
	})
	return hotnessService
}

// ScheduleUpdate 将问题加入更新队列（异步）
// 去重机制避免短时间内重复计算同一问题
func (s *HotnessService) ScheduleUpdate(questionID uint) {
	s.mu.Lock()
	if s.pending[questionID] {
		s.mu.Unlock()
		return
	}
	s.pending[questionID] = true
	s.mu.Unlock()

	// 非阻塞发送到队列
	select {
	case s.queue <- questionID:
	default:
		// 队列满了，移除 pending 标记
		s.mu.Lock()
		delete(s.pending, questionID)
		s.mu.Unlock()
		log.Printf("Hotness queue full, skipping question %d", questionID)
	}
}

// worker 后台批量处理队列中的更新请求
func (s *HotnessService) worker() {
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case questionID := <-s.queue:
			batch = append(batch, questionID)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *HotnessService) processBatch(questionIDs []uint) {
	for _, questionID := range questionIDs {
		s.updateQuestionScore(questionID)

		s.mu.Lock()
		delete(s.pending, questionID)
		s.mu.Unlock()
	}
}

// updateQuestionScore 统计互动数据并重算单个问题的热度分
func (s *HotnessService) updateQuestionScore(questionID uint) {
	var question models.Question
	if err := db.DB.First(&question, questionID).Error; err != nil {
		// 可能刚被作者删除，队列里的残留直接跳过
		return
	}

	// 回答数
	var answers int64
	db.DB.Model(&models.Answer{}).Where("question_id = ?", questionID).Count(&answers)

	// 该问题全部回答收到的 helpful 标记数
	var helpful int64
	db.DB.Model(&models.HelpfulMark{}).
		Joins("JOIN answers ON answers.id = helpful_marks.answer_id").
		Where("answers.question_id = ?", questionID).
		Count(&helpful)

	newScore := utils.CalculateHotScore(
		question.CreatedAt,
		int(helpful),
		int(answers),
		question.Views,
	)

	scoreInt := int(newScore)
	if err := db.DB.Model(&question).UpdateColumn("hot_score", scoreInt).Error; err != nil {
		log.Printf("Failed to update hot score for question %d: %v", questionID, err)
	}
}

// UpdateQuestionScoreSync 同步更新单个问题热度分（需要立即生效的场景）
func UpdateQuestionScoreSync(questionID uint) {
	GetHotnessService().updateQuestionScore(questionID)
}

package services

import (
	"campuslink/internal/db"
	"campuslink/internal/models"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResolutionService 维护问题/回答/用户/学校四张表之间的跨记录不变量：
// 每个问题至多一条最佳回答、helpful_count 恒等于标记数、
// 以及各冗余计数器与真实数据一致。
// 每个多步更新都在单个事务内完成，并发写入靠行锁串行化。
type ResolutionService struct {
	db *gorm.DB
}

var (
	resolutionService *ResolutionService
	resolutionOnce    sync.Once
)

// GetResolutionService 获取单例（使用全局连接）
func GetResolutionService() *ResolutionService {
	resolutionOnce.Do(func() {
		resolutionService = &ResolutionService{db: db.DB}
	})
	return resolutionService
}

// NewResolutionService 用指定连接构建服务，测试用
func NewResolutionService(d *gorm.DB) *ResolutionService {
	return &ResolutionService{db: d}
}

// lockForUpdate 给查询加 FOR UPDATE 行锁
// sqlite（测试环境）不支持该语法，此时靠事务本身串行化
func (s *ResolutionService) lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// SetBestAnswer 问题作者将某条回答选为最佳回答
// 返回更新后的问题和回答
func (s *ResolutionService) SetBestAnswer(answerID uint, requester *models.User) (*models.Question, *models.Answer, error) {
	var question models.Question
	var answer models.Answer

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&answer, answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
			}
			return err
		}

		// 锁住问题行，并发的最佳回答指定在这里排队
		if err := s.lockForUpdate(tx).First(&question, answer.QuestionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: question %d", ErrNotFound, answer.QuestionID)
			}
			return err
		}

		if question.AuthorID != requester.ID {
			return fmt.Errorf("%w: only the question author can select the best answer", ErrForbidden)
		}

		return s.assignBestAnswer(tx, &question, &answer)
	})
	if err != nil {
		return nil, nil, err
	}
	return &question, &answer, nil
}

// assignBestAnswer 在事务内执行指定最佳回答的完整序列。
// 旧的最佳回答必须在覆盖前读出：旧值等于候选时跳过一切计数变动
// （重复指定同一回答不会重复加分），不等时才给旧作者减一。
func (s *ResolutionService) assignBestAnswer(tx *gorm.DB, question *models.Question, answer *models.Answer) error {
	prevBestID := question.BestAnswerID // 覆盖前读取

	if prevBestID != nil && *prevBestID == answer.ID {
		// 已经是最佳回答，幂等返回
		question.IsResolved = true
		answer.IsBestAnswer = true
		return nil
	}

	// 1. 清掉同一问题下其他回答的最佳标记
	if err := tx.Model(&models.Answer{}).
		Where("question_id = ? AND id <> ?", question.ID, answer.ID).
		Update("is_best_answer", false).Error; err != nil {
		return err
	}

	// 2. 标记候选回答
	if err := tx.Model(answer).Update("is_best_answer", true).Error; err != nil {
		return err
	}

	// 3. 问题指向新的最佳回答并置为已解决
	if err := tx.Model(question).Updates(map[string]interface{}{
		"best_answer_id": answer.ID,
		"is_resolved":    true,
	}).Error; err != nil {
		return err
	}
	question.BestAnswerID = &answer.ID
	question.IsResolved = true
	answer.IsBestAnswer = true

	// 4. 新作者 best_answers_count +1
	if err := BumpUserStat(tx, answer.AuthorID, StatBestAnswersCount, 1); err != nil {
		return err
	}

	// 5. 换下来的旧最佳回答作者 -1；旧回答或其作者已不存在则静默跳过
	if prevBestID != nil {
		var prevBest models.Answer
		if err := tx.First(&prevBest, *prevBestID).Error; err == nil {
			if err := BumpUserStat(tx, prevBest.AuthorID, StatBestAnswersCount, -1); err != nil {
				return err
			}
		}
	}

	return nil
}

// ResolveQuestion 作者将问题标记为已解决，可附带最佳回答
// 不带回答 ID 时只置 is_resolved，best_answer_id 保持为空（允许的状态）
func (s *ResolutionService) ResolveQuestion(questionID uint, requester *models.User, bestAnswerID *uint) (*models.Question, error) {
	var question models.Question

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lockForUpdate(tx).First(&question, questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: question %d", ErrNotFound, questionID)
			}
			return err
		}

		if question.AuthorID != requester.ID {
			return fmt.Errorf("%w: only the question author can resolve it", ErrForbidden)
		}

		if bestAnswerID == nil {
			question.IsResolved = true
			return tx.Model(&question).Update("is_resolved", true).Error
		}

		var answer models.Answer
		if err := tx.First(&answer, *bestAnswerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: answer %d", ErrNotFound, *bestAnswerID)
			}
			return err
		}
		if answer.QuestionID != question.ID {
			return fmt.Errorf("%w: answer does not belong to this question", ErrInvalidState)
		}

		return s.assignBestAnswer(tx, &question, &answer)
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// MarkHelpful 用户给回答加 helpful 标记，返回最新 helpful_count
// 不能标记自己的回答，同一用户对同一回答只能标记一次
func (s *ResolutionService) MarkHelpful(answerID uint, requester *models.User) (int, error) {
	var count int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := s.lockForUpdate(tx).First(&answer, answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
			}
			return err
		}

		// 只能操作本校问题下的回答
		var question models.Question
		if err := tx.First(&question, answer.QuestionID).Error; err != nil {
			return err
		}
		if question.CollegeID != requester.CollegeID {
			return fmt.Errorf("%w: answer not from your college", ErrForbidden)
		}

		if answer.AuthorID == requester.ID {
			return fmt.Errorf("%w: you cannot mark your own answer as helpful", ErrInvalidState)
		}

		var existing models.HelpfulMark
		if err := tx.Where("answer_id = ? AND user_id = ?", answerID, requester.ID).
			First(&existing).Error; err == nil {
			return fmt.Errorf("%w: already marked as helpful", ErrInvalidState)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		mark := models.HelpfulMark{AnswerID: answerID, UserID: requester.ID}
		if err := tx.Create(&mark).Error; err != nil {
			return err
		}

		// helpful_count 与标记集合同事务更新，保持恒等
		if err := tx.Model(&answer).
			UpdateColumn("helpful_count", gorm.Expr("helpful_count + ?", 1)).Error; err != nil {
			return err
		}

		count = answer.HelpfulCount + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RemoveHelpful 用户撤销自己的 helpful 标记，返回最新 helpful_count
func (s *ResolutionService) RemoveHelpful(answerID uint, requester *models.User) (int, error) {
	var count int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := s.lockForUpdate(tx).First(&answer, answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
			}
			return err
		}

		var mark models.HelpfulMark
		if err := tx.Where("answer_id = ? AND user_id = ?", answerID, requester.ID).
			First(&mark).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: not marked as helpful yet", ErrInvalidState)
			}
			return err
		}

		if err := tx.Delete(&mark).Error; err != nil {
			return err
		}

		if err := tx.Model(&answer).
			UpdateColumn("helpful_count", gorm.Expr("helpful_count - ?", 1)).Error; err != nil {
			return err
		}

		count = answer.HelpfulCount - 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAnswer 作者删除自己的回答
// 若它是当前最佳回答，先把问题退回未解决状态，再删除记录和 helpful 标记
func (s *ResolutionService) DeleteAnswer(answerID uint, requester *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := tx.First(&answer, answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
			}
			return err
		}

		if answer.AuthorID != requester.ID {
			return fmt.Errorf("%w: you can only delete your own answers", ErrForbidden)
		}

		// 删除前读取最佳标记，决定是否要清掉问题的 resolution
		if answer.IsBestAnswer {
			if err := tx.Model(&models.Question{}).
				Where("id = ?", answer.QuestionID).
				Updates(map[string]interface{}{
					"best_answer_id": nil,
					"is_resolved":    false,
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("answer_id = ?", answer.ID).
			Delete(&models.HelpfulMark{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&answer).Error; err != nil {
			return err
		}

		return BumpUserStat(tx, answer.AuthorID, StatAnswersGiven, -1)
	})
}

// DeleteQuestion 作者删除自己的问题，连带删除全部回答及其 helpful 标记，
// 并回滚相关作者和学校的计数器
func (s *ResolutionService) DeleteQuestion(questionID uint, requester *models.User) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var question models.Question
		if err := s.lockForUpdate(tx).First(&question, questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: question %d", ErrNotFound, questionID)
			}
			return err
		}

		if question.AuthorID != requester.ID {
			return fmt.Errorf("%w: you can only delete your own questions", ErrForbidden)
		}

		// 先解除对最佳回答的外键引用，才能删它指向的回答
		if question.BestAnswerID != nil {
			if err := tx.Model(&question).
				UpdateColumn("best_answer_id", nil).Error; err != nil {
				return err
			}
		}

		var answers []models.Answer
		if err := tx.Where("question_id = ?", question.ID).Find(&answers).Error; err != nil {
			return err
		}

		if len(answers) > 0 {
			answerIDs := make([]uint, len(answers))
			perAuthor := make(map[uint]int)
			for i, a := range answers {
				answerIDs[i] = a.ID
				perAuthor[a.AuthorID]++
			}

			if err := tx.Where("answer_id IN ?", answerIDs).
				Delete(&models.HelpfulMark{}).Error; err != nil {
				return err
			}
			if err := tx.Where("question_id = ?", question.ID).
				Delete(&models.Answer{}).Error; err != nil {
				return err
			}
			for authorID, n := range perAuthor {
				if err := BumpUserStat(tx, authorID, StatAnswersGiven, -n); err != nil {
					return err
				}
			}
		}

		if err := tx.Delete(&question).Error; err != nil {
			return err
		}

		if err := BumpUserStat(tx, question.AuthorID, StatQuestionsAsked, -1); err != nil {
			return err
		}
		return BumpCollegeQuestions(tx, question.CollegeID, -1)
	})
}

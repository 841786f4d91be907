package repository

import (
	"errors"
	"time"

	"github.com/collabdoc/backend/internal/model"
	"gorm.io/gorm"
)

type debateRepository struct {
	db *gorm.DB
}

func NewDebateRepository(db *gorm.DB) DebateRepository {
	return &debateRepository{db: db}
}

func (r *debateRepository) WithTx(tx *gorm.DB) DebateRepository {
	return &debateRepository{db: tx}
}

func (r *debateRepository) Create(debate *model.Debate) error {
	return r.db.Create(debate).Error
}

func (r *debateRepository) Get(id uint) (*model.Debate, error) {
	var debate model.Debate
	err := r.db.First(&debate, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &debate, nil
}

func (r *debateRepository) GetByContribute(contributeID uint) (*model.Debate, error) {
	var debate model.Debate
	err := r.db.Where("contribute_id = ?", contributeID).First(&debate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &debate, nil
}

// Close 条件关闭讨论
// 与评论写入共用同一套守卫：只有仍为 open 的行才会被关闭
func (r *debateRepository) Close(id uint, endAt time.Time) error {
	res := r.db.Model(&model.Debate{}).
		Where("id = ? AND status = ?", id, model.DebateStatusOpen).
		Updates(map[string]interface{}{
			"status":     model.DebateStatusClosed,
			"end_at":     endAt,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidState
	}
	return nil
}

// AdvanceOpen 条件推进序列号并延长截止时间
// 讨论已被并发关闭时不写任何东西，避免把 open 状态写回去
func (r *debateRepository) AdvanceOpen(id uint, commentSequence int, endAt time.Time) error {
	res := r.db.Model(&model.Debate{}).
		Where("id = ? AND status = ?", id, model.DebateStatusOpen).
		Updates(map[string]interface{}{
			"comment_sequence": commentSequence,
			"end_at":           endAt,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidState
	}
	return nil
}

// ListExpiredOpen 截止时间已过、仍处于 open 的讨论
func (r *debateRepository) ListExpiredOpen(now time.Time) ([]model.Debate, error) {
	var debates []model.Debate
	err := r.db.Where("status = ? AND end_at <= ?", model.DebateStatusOpen, now).
		Order("end_at asc, id asc").
		Find(&debates).Error
	return debates, err
}

func (r *debateRepository) CreateComment(comment *model.Comment) error {
	return r.db.Create(comment).Error
}

func (r *debateRepository) ListComments(debateID uint) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.db.Where("debate_id = ?", debateID).
		Order("sequence asc").
		Find(&comments).Error
	return comments, err
}

package repository

import (
	"errors"
	"time"

	"github.com/collabdoc/backend/internal/model"
	"github.com/collabdoc/backend/internal/service/statemachine"
	"gorm.io/gorm"
)

type contributeRepository struct {
	db *gorm.DB
}

func NewContributeRepository(db *gorm.DB) ContributeRepository {
	return &contributeRepository{db: db}
}

func (r *contributeRepository) WithTx(tx *gorm.DB) ContributeRepository {
	return &contributeRepository{db: tx}
}

// Create 连同修改项一并落库（gorm 关联写入，单事务）
func (r *contributeRepository) Create(contribute *model.Contribute) error {
	return r.db.Create(contribute).Error
}

func (r *contributeRepository) Get(id uint) (*model.Contribute, error) {
	var contribute model.Contribute
	err := r.db.Preload("Amendments", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc, id asc")
	}).First(&contribute, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contribute, nil
}

func (r *contributeRepository) ListByDocument(documentID uint) ([]model.Contribute, error) {
	var contributes []model.Contribute
	err := r.db.Where("document_id = ?", documentID).
		Order("created_at desc, id desc").
		Find(&contributes).Error
	return contributes, err
}

func (r *contributeRepository) ListByMember(memberID uint) ([]model.Contribute, error) {
	var contributes []model.Contribute
	err := r.db.Where("member_id = ?", memberID).
		Order("created_at desc, id desc").
		Find(&contributes).Error
	return contributes, err
}

func (r *contributeRepository) ListByStatus(status string) ([]model.Contribute, error) {
	var contributes []model.Contribute
	err := r.db.Where("status = ?", status).
		Order("created_at asc, id asc").
		Find(&contributes).Error
	return contributes, err
}

// ListExpiredVoting 投票截止时间已过、仍处于 voting 的提案
func (r *contributeRepository) ListExpiredVoting(now time.Time) ([]model.Contribute, error) {
	var contributes []model.Contribute
	err := r.db.Where("status = ? AND voting_end_at IS NOT NULL AND voting_end_at <= ?",
		string(statemachine.ContributeStatusVoting), now).
		Order("voting_end_at asc, id asc").
		Find(&contributes).Error
	return contributes, err
}

// CompareAndSetStatus 条件更新状态
// 与后台巡检、用户撤回等并发调用方共用同一套守卫：只有当前状态匹配才生效
func (r *contributeRepository) CompareAndSetStatus(id uint, from, to string) error {
	res := r.db.Model(&model.Contribute{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
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

// OpenVoting 进入投票状态并写入截止时间
func (r *contributeRepository) OpenVoting(id uint, from string, votingEndAt time.Time) error {
	res := r.db.Model(&model.Contribute{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":        string(statemachine.ContributeStatusVoting),
			"voting_end_at": votingEndAt,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidState
	}
	return nil
}

func (r *contributeRepository) SetAmendmentNewSection(amendmentID uint, sectionID uint) error {
	return r.db.Model(&model.Amendment{}).
		Where("id = ?", amendmentID).
		Update("new_section_id", sectionID).Error
}

package repository

import (
	"time"

	"github.com/collabdoc/backend/internal/model"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository {
	return &outboxRepository{db: tx}
}

// Create 写入待投递事件
// 必须与触发它的状态变更在同一事务内，保证"提交后才可见、至少一次投递"
func (r *outboxRepository) Create(event *model.OutboxEvent) error {
	return r.db.Create(event).Error
}

func (r *outboxRepository) ListPending(limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	tx := r.db.Where("dispatched = ?", false).
		Order("id asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	err := tx.Find(&events).Error
	return events, err
}

func (r *outboxRepository) MarkDispatched(id uint) error {
	return r.db.Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"dispatched":    true,
			"dispatched_at": time.Now(),
		}).Error
}

package model

import (
	"time"
)

// OutboxEvent 待投递的领域事件
// 与状态变更写在同一事务中，由独立的分发器在事务提交后投递
// 消费侧需按 EventID 幂等处理（至少一次投递）
type OutboxEvent struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	EventID      string     `json:"event_id" gorm:"size:64;uniqueIndex"` // UUID
	EventType    string     `json:"event_type" gorm:"size:50;index;not null"`
	ContributeID uint       `json:"contribute_id" gorm:"index;not null"`
	Dispatched   bool       `json:"dispatched" gorm:"index;default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at"`
}

package model

import (
	"time"
)

// Debate 投票结果不明朗时开启的延长讨论期
// 与 Contribute 一对一；Contribute 结束后讨论记录保留以供审计
type Debate struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ContributeID    uint      `json:"contribute_id" gorm:"uniqueIndex;not null"`
	Status          string    `json:"status" gorm:"size:20;default:open"` // open, closed
	EndAt           time.Time `json:"end_at"`                             // 预计结束时间；已结束的讨论为实际结束时间
	CommentSequence int       `json:"comment_sequence" gorm:"default:1"`  // 为评论分配顺序号的序列
	Comments        []Comment `json:"comments,omitempty" gorm:"foreignKey:DebateID"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	DebateID  uint      `json:"debate_id" gorm:"index;not null"`
	Sequence  int       `json:"sequence" gorm:"not null"` // 由 Debate.CommentSequence 分配，只增不复用
	MemberID  uint      `json:"member_id" gorm:"index;not null"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

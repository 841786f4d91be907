package model

import (
	"time"
)

// Amendment 类型
const (
	AmendmentTypeCreate = "create"
	AmendmentTypeUpdate = "update"
	AmendmentTypeDelete = "delete"
)

// Vote 选项
const (
	VoteChoiceAgree    = "agree"
	VoteChoiceDisagree = "disagree"
)

// Debate 状态
const (
	DebateStatusOpen   = "open"
	DebateStatusClosed = "closed"
)

type Document struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Title     string     `json:"title" gorm:"size:255;not null"`
	MemberID  uint       `json:"member_id" gorm:"index;not null"` // 创建者
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" gorm:"index"` // 逻辑删除，章节仍引用时不做物理删除
}

// Section 文档的版本化内容块
// 身份由 (section_id, revision) 共同确定：section_id 跨版本稳定，revision 单调递增
// 行一经写入不再修改，"更新"章节即追加一行新 revision
type Section struct {
	SectionID  uint      `json:"section_id" gorm:"primaryKey;autoIncrement:false;column:section_id"`
	Revision   int       `json:"revision" gorm:"primaryKey;autoIncrement:false"`
	DocumentID uint      `json:"document_id" gorm:"index;not null"`
	Heading    int       `json:"heading" gorm:"default:1"` // 标题层级
	Title      string    `json:"title" gorm:"size:255"`
	Content    *string   `json:"content" gorm:"type:text"` // nil 表示自该版本起删除
	Orders     int       `json:"orders" gorm:"column:orders;default:0"` // 同文档兄弟章节间的排列位置
	CreatedAt  time.Time `json:"created_at"`
}

// Amendment 一次原子修改（创建/更新/删除某个章节），从属于某个 Contribute
// 创建后不可变；NewSectionID 在合并时回填，用于审计 CREATE 实际产生的章节
type Amendment struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ContributeID    uint      `json:"contribute_id" gorm:"index;not null"`
	Type            string    `json:"type" gorm:"size:20;not null"` // create, update, delete
	TargetSectionID *uint     `json:"target_section_id"`            // create 时为空
	AfterSectionID  *uint     `json:"after_section_id"`             // create 的插入位置，空表示插入到文档头部
	NewSectionID    *uint     `json:"new_section_id"`               // 合并后回填
	Heading         int       `json:"heading" gorm:"default:1"`
	Title           string    `json:"title" gorm:"size:255"`
	Content         string    `json:"content" gorm:"type:text"`
	SortOrder       int       `json:"sort_order" gorm:"default:0"` // Contribute 内的应用顺序
	CreatedAt       time.Time `json:"created_at"`
}

// Contribute 用户提交的一批修改提案
type Contribute struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	DocumentID  uint        `json:"document_id" gorm:"index;not null"`
	MemberID    uint        `json:"member_id" gorm:"index;not null"`
	Title       string      `json:"title" gorm:"size:255"`
	Description string      `json:"description" gorm:"size:1000"`
	Status      string      `json:"status" gorm:"size:50;index;default:pending"` // pending, voting, debating, merged, rejected
	VotingEndAt *time.Time  `json:"voting_end_at"`                               // 投票窗口截止时间，进入 voting 时写入
	Amendments  []Amendment `json:"amendments,omitempty" gorm:"foreignKey:ContributeID"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Vote 每人对每个 Contribute 仅保留一票，后投覆盖先投
type Vote struct {
	ContributeID uint      `json:"contribute_id" gorm:"primaryKey;autoIncrement:false"`
	MemberID     uint      `json:"member_id" gorm:"primaryKey;autoIncrement:false"`
	Choice       string    `json:"choice" gorm:"size:20;not null"` // agree, disagree
	Weight       int       `json:"weight" gorm:"default:1"`        // 由身份子系统给出的投票权重
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VoteResultSummary 投票结果汇总，按需聚合，不做缓存
type VoteResultSummary struct {
	TotalWeight   int `json:"total_weight"`
	AgreeCount    int `json:"agree_count"`
	DisagreeCount int `json:"disagree_count"`
}

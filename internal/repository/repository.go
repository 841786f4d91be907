package repository

import (
	"errors"
	"time"

	"github.com/collabdoc/backend/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

// ErrInvalidState 当前状态不允许该操作（如对已合并的提案投票）
var ErrInvalidState = errors.New("operation not allowed in current state")

// ErrConflict 乐观并发冲突（目标章节已被其他已合并的提案改动）
var ErrConflict = errors.New("target section has been modified by another merged contribute")

type DocumentRepository interface {
	Create(doc *model.Document) error
	Get(id uint) (*model.Document, error)
	List() ([]model.Document, error)
	UpdateTitle(id uint, title string) error
	Delete(id uint) error
}

// SectionRepository 章节存储
// 章节行只追加不修改（插入时的排序平移除外），所有写操作要求在调用方事务内执行
type SectionRepository interface {
	// WithTx 返回绑定到指定事务的仓库实例
	WithTx(tx *gorm.DB) SectionRepository

	GetSectionsAtRevision(documentID uint, revision int) ([]model.Section, error)
	GetLatestRevision(sectionID uint) (*model.Section, error)
	// GetLatestRevisionForUpdate 带行锁读取最新版本行，用于合并时的冲突检查
	GetLatestRevisionForUpdate(sectionID uint) (*model.Section, error)
	GetHistory(sectionID uint) ([]model.Section, error)
	MaxRevision(documentID uint) (int, error)

	InsertSection(documentID uint, revision int, afterSectionID *uint, heading int, title, content string) (*model.Section, error)
	ReviseSection(sectionID uint, revision int, heading int, title, content string) (*model.Section, error)
	DeleteSection(sectionID uint, revision int) (*model.Section, error)
}

type ContributeRepository interface {
	WithTx(tx *gorm.DB) ContributeRepository

	Create(contribute *model.Contribute) error
	Get(id uint) (*model.Contribute, error)
	ListByDocument(documentID uint) ([]model.Contribute, error)
	ListByMember(memberID uint) ([]model.Contribute, error)
	ListByStatus(status string) ([]model.Contribute, error)
	ListExpiredVoting(now time.Time) ([]model.Contribute, error)

	// CompareAndSetStatus 条件更新状态，当前状态不匹配时返回 ErrInvalidState
	CompareAndSetStatus(id uint, from, to string) error
	// OpenVoting 状态进入 voting 并写入投票截止时间，一次条件更新完成
	OpenVoting(id uint, from string, votingEndAt time.Time) error
	// SetAmendmentNewSection 合并后回填 CREATE 类修改项实际产生的章节ID
	SetAmendmentNewSection(amendmentID uint, sectionID uint) error
}

type VoteRepository interface {
	// Upsert 按 (contribute_id, member_id) 落一票，后投覆盖先投
	Upsert(vote *model.Vote) error
	Summarize(contributeID uint) (*model.VoteResultSummary, error)
	ListByContribute(contributeID uint) ([]model.Vote, error)
}

type DebateRepository interface {
	WithTx(tx *gorm.DB) DebateRepository

	Create(debate *model.Debate) error
	Get(id uint) (*model.Debate, error)
	GetByContribute(contributeID uint) (*model.Debate, error)
	// Close 条件关闭，仅当讨论仍为 open 时生效，否则返回 ErrInvalidState
	Close(id uint, endAt time.Time) error
	// AdvanceOpen 条件更新仍为 open 的讨论的序列号与截止时间
	// 讨论被并发关闭时返回 ErrInvalidState，调用方事务应整体回滚
	AdvanceOpen(id uint, commentSequence int, endAt time.Time) error
	ListExpiredOpen(now time.Time) ([]model.Debate, error)
	CreateComment(comment *model.Comment) error
	ListComments(debateID uint) ([]model.Comment, error)
}

type OutboxRepository interface {
	WithTx(tx *gorm.DB) OutboxRepository

	Create(event *model.OutboxEvent) error
	ListPending(limit int) ([]model.OutboxEvent, error)
	MarkDispatched(id uint) error
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/collabdoc/backend/config"
	"github.com/collabdoc/backend/internal/eventbus"
	"github.com/collabdoc/backend/internal/model"
	"github.com/collabdoc/backend/internal/repository"
	"github.com/collabdoc/backend/internal/service/statemachine"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

type DebateService struct {
	cfg            *config.Config
	db             *gorm.DB
	debateRepo     repository.DebateRepository
	contributeRepo repository.ContributeRepository
	outboxRepo     repository.OutboxRepository
}

func NewDebateService(cfg *config.Config, db *gorm.DB, debateRepo repository.DebateRepository, contributeRepo repository.ContributeRepository, outboxRepo repository.OutboxRepository) *DebateService {
	return &DebateService{
		cfg:            cfg,
		db:             db,
		debateRepo:     debateRepo,
		contributeRepo: contributeRepo,
		outboxRepo:     outboxRepo,
	}
}

// OpenFrom 从投票中的提案开启讨论
// 只有处于 voting 的提案可以升级为讨论；提案状态在同一事务内翻转为 debating
func (s *DebateService) OpenFrom(contribute *model.Contribute) (*model.Debate, error) {
	if statemachine.ContributeStatus(contribute.Status) != statemachine.ContributeStatusVoting {
		return nil, fmt.Errorf("only a contribute under voting may be escalated to debate: %w",
			repository.ErrInvalidState)
	}

	debate := &model.Debate{
		ContributeID:    contribute.ID,
		Status:          model.DebateStatusOpen,
		EndAt:           time.Now().Add(s.cfg.Debate.Extension),
		CommentSequence: 1,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.contributeRepo.WithTx(tx).CompareAndSetStatus(contribute.ID,
			string(statemachine.ContributeStatusVoting),
			string(statemachine.ContributeStatusDebating)); err != nil {
			return err
		}
		if err := s.debateRepo.WithTx(tx).Create(debate); err != nil {
			return err
		}
		return s.outboxRepo.WithTx(tx).Create(&model.OutboxEvent{
			EventID:      uuid.NewString(),
			EventType:    string(eventbus.ContributeEventDebateOpened),
			ContributeID: contribute.ID,
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	klog.V(6).Infof("讨论开启: debateID=%d, contributeID=%d, endAt=%s",
		debate.ID, contribute.ID, debate.EndAt.Format(time.RFC3339))
	return debate, nil
}

// Close 关闭讨论
// 幂等：重复关闭已结束的讨论只记日志，不算错误
// 关闭走条件更新，输掉竞争（已被并发关闭）同样视为成功
func (s *DebateService) Close(debate *model.Debate) error {
	if debate.Status == model.DebateStatusClosed {
		klog.Warningf("讨论已结束，忽略重复的关闭请求: debateID=%d", debate.ID)
		return nil
	}

	now := time.Now()
	err := s.debateRepo.Close(debate.ID, now)
	if errors.Is(err, repository.ErrInvalidState) {
		klog.Warningf("讨论已结束，忽略重复的关闭请求: debateID=%d", debate.ID)
		return nil
	}
	if err != nil {
		return err
	}
	debate.Status = model.DebateStatusClosed
	debate.EndAt = now
	debate.UpdatedAt = now
	return nil
}

type RecordCommentRequest struct {
	DebateID uint   `json:"debate_id"`
	MemberID uint   `json:"member_id"`
	Content  string `json:"content"`
}

func (req RecordCommentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.DebateID, validation.Required),
		validation.Field(&req.MemberID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.Length(1, 10000)),
	)
}

// RecordComment 在讨论中发表评论
// 评论取下一个顺序号（只增不复用），并把截止时间延长到
// min(当前时间+延长量, 开启时间+最长存续期)，讨论的总时长存在硬上限
func (s *DebateService) RecordComment(req RecordCommentRequest) (*model.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var comment *model.Comment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		debateRepo := s.debateRepo.WithTx(tx)
		debate, err := debateRepo.Get(req.DebateID)
		if err != nil {
			return err
		}
		if debate.Status != model.DebateStatusOpen {
			return fmt.Errorf("debate %d is closed: %w", debate.ID, repository.ErrInvalidState)
		}

		sequence := debate.CommentSequence

		endAt := time.Now().Add(s.cfg.Debate.Extension)
		limitEndAt := debate.CreatedAt.Add(s.cfg.Debate.MaxLifetime)
		if limitEndAt.Before(endAt) {
			endAt = limitEndAt
		}

		// 条件更新：讨论在读取后被并发关闭时整个事务回滚，评论不会落库
		if err := debateRepo.AdvanceOpen(debate.ID, sequence+1, endAt); err != nil {
			return fmt.Errorf("debate %d closed concurrently: %w", debate.ID, err)
		}

		comment = &model.Comment{
			DebateID:  debate.ID,
			Sequence:  sequence,
			MemberID:  req.MemberID,
			Content:   req.Content,
			CreatedAt: time.Now(),
		}
		return debateRepo.CreateComment(comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *DebateService) GetByContribute(contributeID uint) (*model.Debate, error) {
	return s.debateRepo.GetByContribute(contributeID)
}

func (s *DebateService) ListComments(debateID uint) ([]model.Comment, error) {
	return s.debateRepo.ListComments(debateID)
}

func (s *DebateService) ListExpiredOpen(now time.Time) ([]model.Debate, error) {
	return s.debateRepo.ListExpiredOpen(now)
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/collabdoc/backend/internal/eventbus"
	"github.com/collabdoc/backend/internal/model"
	"github.com/collabdoc/backend/internal/repository"
	"github.com/collabdoc/backend/internal/service/statemachine"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"k8s.io/klog/v2"
)

// MergeService 合并引擎
// 每个提案最多被调用一次，发生在提案迁移到 merged 的那次状态变更中：
// 状态翻转、全部修改项的应用、事件出箱处于同一事务，要么全部生效要么全部回滚
type MergeService struct {
	db             *gorm.DB
	sectionRepo    repository.SectionRepository
	contributeRepo repository.ContributeRepository
	outboxRepo     repository.OutboxRepository
	stateMachine   *statemachine.ContributeStateMachine
}

func NewMergeService(db *gorm.DB, sectionRepo repository.SectionRepository, contributeRepo repository.ContributeRepository, outboxRepo repository.OutboxRepository) *MergeService {
	return &MergeService{
		db:             db,
		sectionRepo:    sectionRepo,
		contributeRepo: contributeRepo,
		outboxRepo:     outboxRepo,
		stateMachine:   statemachine.NewContributeStateMachine(),
	}
}

// Merge 将已通过的提案应用到章节存储
// fromStatus 只能是 voting 或 debating；冲突时整体回滚并把提案置为 rejected
func (s *MergeService) Merge(contribute *model.Contribute, fromStatus statemachine.ContributeStatus) error {
	if err := s.stateMachine.ValidateTransition(fromStatus, statemachine.ContributeStatusMerged); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		sectionRepo := s.sectionRepo.WithTx(tx)
		contributeRepo := s.contributeRepo.WithTx(tx)

		// 先做条件状态翻转，并发的巡检/撤回只会有一方成功
		if err := contributeRepo.CompareAndSetStatus(contribute.ID,
			string(fromStatus), string(statemachine.ContributeStatusMerged)); err != nil {
			return err
		}

		maxRevision, err := sectionRepo.MaxRevision(contribute.DocumentID)
		if err != nil {
			return err
		}
		revision := maxRevision + 1

		for _, amendment := range contribute.Amendments {
			if err := s.applyAmendment(sectionRepo, contributeRepo, &amendment, contribute.DocumentID, revision); err != nil {
				return err
			}
		}

		return s.outboxRepo.WithTx(tx).Create(&model.OutboxEvent{
			EventID:      uuid.NewString(),
			EventType:    string(eventbus.ContributeEventMerged),
			ContributeID: contribute.ID,
			CreatedAt:    time.Now(),
		})
	})
	if err == nil {
		klog.V(6).Infof("提案合并成功: contributeID=%d, documentID=%d, amendments=%d",
			contribute.ID, contribute.DocumentID, len(contribute.Amendments))
		return nil
	}

	if errors.Is(err, repository.ErrConflict) {
		// 冲突导致整体回滚，提案转为 rejected 而不是悬在中间态
		// 作者需要基于当前内容重新提交，核心不做自动重试
		s.rejectAfterConflict(contribute.ID, fromStatus)
		klog.V(6).Infof("提案合并冲突: contributeID=%d, error=%v", contribute.ID, err)
	}
	return err
}

// applyAmendment 应用单个修改项
// update/delete 必须先确认目标章节的最新版本仍然存活，否则视为并发冲突
func (s *MergeService) applyAmendment(sectionRepo repository.SectionRepository, contributeRepo repository.ContributeRepository, amendment *model.Amendment, documentID uint, revision int) error {
	switch amendment.Type {
	case model.AmendmentTypeCreate:
		section, err := sectionRepo.InsertSection(documentID, revision,
			amendment.AfterSectionID, amendment.Heading, amendment.Title, amendment.Content)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// 插入锚点已不存在，按并发冲突处理，保证提案走到终态
				return fmt.Errorf("amendment %d: anchor section vanished: %w",
					amendment.ID, repository.ErrConflict)
			}
			return err
		}
		// 回填实际产生的章节ID，供审计追溯
		return contributeRepo.SetAmendmentNewSection(amendment.ID, section.SectionID)

	case model.AmendmentTypeUpdate:
		if err := s.checkTargetAlive(sectionRepo, amendment); err != nil {
			return err
		}
		_, err := sectionRepo.ReviseSection(*amendment.TargetSectionID, revision,
			amendment.Heading, amendment.Title, amendment.Content)
		return err

	case model.AmendmentTypeDelete:
		if err := s.checkTargetAlive(sectionRepo, amendment); err != nil {
			return err
		}
		_, err := sectionRepo.DeleteSection(*amendment.TargetSectionID, revision)
		return err

	default:
		return fmt.Errorf("unknown amendment type: %s", amendment.Type)
	}
}

// checkTargetAlive 锁定读目标章节的最新版本行并确认未被删除
func (s *MergeService) checkTargetAlive(sectionRepo repository.SectionRepository, amendment *model.Amendment) error {
	if amendment.TargetSectionID == nil {
		return fmt.Errorf("amendment %d has no target section", amendment.ID)
	}
	latest, err := sectionRepo.GetLatestRevisionForUpdate(*amendment.TargetSectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 目标章节不存在同样按冲突拒绝，而不是留在可重试的中间态
			return fmt.Errorf("amendment %d: section %d not found: %w",
				amendment.ID, *amendment.TargetSectionID, repository.ErrConflict)
		}
		return err
	}
	if latest.Content == nil {
		return fmt.Errorf("amendment %d: section %d deleted at revision %d: %w",
			amendment.ID, latest.SectionID, latest.Revision, repository.ErrConflict)
	}
	return nil
}

// rejectAfterConflict 冲突回滚后将提案标记为 rejected 并出箱拒绝事件
func (s *MergeService) rejectAfterConflict(contributeID uint, fromStatus statemachine.ContributeStatus) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.contributeRepo.WithTx(tx).CompareAndSetStatus(contributeID,
			string(fromStatus), string(statemachine.ContributeStatusRejected)); err != nil {
			return err
		}
		return s.outboxRepo.WithTx(tx).Create(&model.OutboxEvent{
			EventID:      uuid.NewString(),
			EventType:    string(eventbus.ContributeEventRejected),
			ContributeID: contributeID,
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		klog.Warningf("冲突后标记提案失败: contributeID=%d, error=%v", contributeID, err)
	}
}

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

// ContributeService 提案生命周期
// pending -> voting -> merged/rejected/debating，debating -> merged/rejected
type ContributeService struct {
	cfg            *config.Config
	db             *gorm.DB
	contributeRepo repository.ContributeRepository
	docRepo        repository.DocumentRepository
	sectionRepo    repository.SectionRepository
	outboxRepo     repository.OutboxRepository
	voteService    *VoteService
	mergeService   *MergeService
	debateService  *DebateService
	stateMachine   *statemachine.ContributeStateMachine
}

func NewContributeService(cfg *config.Config, db *gorm.DB, contributeRepo repository.ContributeRepository, docRepo repository.DocumentRepository, sectionRepo repository.SectionRepository, outboxRepo repository.OutboxRepository, voteService *VoteService, mergeService *MergeService, debateService *DebateService) *ContributeService {
	return &ContributeService{
		cfg:            cfg,
		db:             db,
		contributeRepo: contributeRepo,
		docRepo:        docRepo,
		sectionRepo:    sectionRepo,
		outboxRepo:     outboxRepo,
		voteService:    voteService,
		mergeService:   mergeService,
		debateService:  debateService,
		stateMachine:   statemachine.NewContributeStateMachine(),
	}
}

type AmendmentRequest struct {
	Type            string `json:"type"`
	TargetSectionID *uint  `json:"target_section_id"`
	AfterSectionID  *uint  `json:"after_section_id"`
	Heading         int    `json:"heading"`
	Title           string `json:"title"`
	Content         string `json:"content"`
}

func (req AmendmentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Type, validation.Required,
			validation.In(model.AmendmentTypeCreate, model.AmendmentTypeUpdate, model.AmendmentTypeDelete)),
		validation.Field(&req.TargetSectionID,
			validation.When(req.Type == model.AmendmentTypeCreate, validation.Nil).
				Else(validation.NotNil)),
		validation.Field(&req.Content,
			validation.When(req.Type != model.AmendmentTypeDelete, validation.Required)),
		validation.Field(&req.Title, validation.Length(0, 255)),
	)
}

type CreateContributeRequest struct {
	DocumentID  uint               `json:"document_id"`
	MemberID    uint               `json:"member_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Amendments  []AmendmentRequest `json:"amendments"`
}

func (req CreateContributeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.MemberID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, 255)),
		validation.Field(&req.Description, validation.Length(0, 1000)),
		validation.Field(&req.Amendments, validation.Required, validation.Length(1, 0)),
	)
}

// Create 创建提案
// 修改项的校验全部发生在创建时，不合法的提案到不了 voting
func (s *ContributeService) Create(req CreateContributeRequest) (*model.Contribute, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[uint]bool)
	for i, amendment := range req.Amendments {
		if err := amendment.Validate(); err != nil {
			return nil, fmt.Errorf("amendment %d: %w", i, err)
		}
		// 同一提案内不允许两次指向同一目标章节，否则合并时会写出同版本的重复行
		if amendment.TargetSectionID != nil {
			if seen[*amendment.TargetSectionID] {
				return nil, validation.NewError("validation_duplicate_target",
					fmt.Sprintf("duplicate target section %d", *amendment.TargetSectionID))
			}
			seen[*amendment.TargetSectionID] = true
		}
	}

	if _, err := s.docRepo.Get(req.DocumentID); err != nil {
		return nil, err
	}
	for i, amendment := range req.Amendments {
		if err := s.validateSectionReferences(req.DocumentID, amendment); err != nil {
			return nil, fmt.Errorf("amendment %d: %w", i, err)
		}
	}

	contribute := &model.Contribute{
		DocumentID:  req.DocumentID,
		MemberID:    req.MemberID,
		Title:       req.Title,
		Description: req.Description,
		Status:      string(statemachine.ContributeStatusPending),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	for i, amendment := range req.Amendments {
		contribute.Amendments = append(contribute.Amendments, model.Amendment{
			Type:            amendment.Type,
			TargetSectionID: amendment.TargetSectionID,
			AfterSectionID:  amendment.AfterSectionID,
			Heading:         amendment.Heading,
			Title:           amendment.Title,
			Content:         amendment.Content,
			SortOrder:       i,
			CreatedAt:       time.Now(),
		})
	}

	if err := s.contributeRepo.Create(contribute); err != nil {
		return nil, err
	}
	klog.V(6).Infof("提案创建成功: contributeID=%d, documentID=%d, amendments=%d",
		contribute.ID, contribute.DocumentID, len(contribute.Amendments))
	return contribute, nil
}

// validateSectionReferences 校验修改项引用的章节确实存在且属于目标文档
// 悬空引用在创建时就拒绝，不能等到合并阶段才发现，否则提案会卡在非终态
func (s *ContributeService) validateSectionReferences(documentID uint, amendment AmendmentRequest) error {
	check := func(sectionID uint, field string) error {
		section, err := s.sectionRepo.GetLatestRevision(sectionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return validation.NewError("validation_unknown_section",
					fmt.Sprintf("%s %d does not exist", field, sectionID))
			}
			return err
		}
		if section.DocumentID != documentID {
			return validation.NewError("validation_foreign_section",
				fmt.Sprintf("%s %d belongs to another document", field, sectionID))
		}
		return nil
	}

	if amendment.TargetSectionID != nil {
		if err := check(*amendment.TargetSectionID, "target section"); err != nil {
			return err
		}
	}
	if amendment.AfterSectionID != nil {
		if err := check(*amendment.AfterSectionID, "after section"); err != nil {
			return err
		}
	}
	return nil
}

// Open 开放投票
// 没有修改项或不处于 pending 的提案不能进入投票
func (s *ContributeService) Open(id uint) (*model.Contribute, error) {
	contribute, err := s.contributeRepo.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.stateMachine.ValidateTransition(
		statemachine.ContributeStatus(contribute.Status),
		statemachine.ContributeStatusVoting); err != nil {
		return nil, err
	}
	if len(contribute.Amendments) == 0 {
		return nil, fmt.Errorf("contribute %d has no amendments: %w", id, repository.ErrInvalidState)
	}

	votingEndAt := time.Now().Add(s.cfg.Vote.VotingWindow)
	if err := s.contributeRepo.OpenVoting(id,
		string(statemachine.ContributeStatusPending), votingEndAt); err != nil {
		return nil, err
	}
	klog.V(6).Infof("提案进入投票: contributeID=%d, votingEndAt=%s",
		id, votingEndAt.Format(time.RFC3339))
	return s.contributeRepo.Get(id)
}

// Withdraw 撤回提案
// 仅 pending/voting 可撤回，进入讨论期或终态后不可撤回；撤回等同拒绝（终态）
func (s *ContributeService) Withdraw(id uint) error {
	contribute, err := s.contributeRepo.Get(id)
	if err != nil {
		return err
	}
	status := statemachine.ContributeStatus(contribute.Status)
	if !statemachine.CanWithdraw(status) {
		return fmt.Errorf("contribute %d is %s: %w", id, contribute.Status, repository.ErrInvalidState)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.contributeRepo.WithTx(tx).CompareAndSetStatus(id,
			string(status), string(statemachine.ContributeStatusRejected)); err != nil {
			return err
		}
		return s.outboxRepo.WithTx(tx).Create(&model.OutboxEvent{
			EventID:      uuid.NewString(),
			EventType:    string(eventbus.ContributeEventRejected),
			ContributeID: id,
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		return err
	}
	klog.V(6).Infof("提案已撤回: contributeID=%d", id)
	return nil
}

// ResolveVoting 投票截止时的裁决
// 通过则同步触发合并；否决则拒绝；结果不明朗则升级为讨论
func (s *ContributeService) ResolveVoting(id uint) error {
	contribute, err := s.contributeRepo.Get(id)
	if err != nil {
		return err
	}
	if statemachine.ContributeStatus(contribute.Status) != statemachine.ContributeStatusVoting {
		return fmt.Errorf("contribute %d is %s: %w", id, contribute.Status, repository.ErrInvalidState)
	}

	summary, err := s.voteService.Summarize(id)
	if err != nil {
		return err
	}
	outcome := s.voteService.Decide(summary)
	klog.V(6).Infof("投票裁决: contributeID=%d, agree=%d, disagree=%d, weight=%d, outcome=%s",
		id, summary.AgreeCount, summary.DisagreeCount, summary.TotalWeight, outcome)

	switch outcome {
	case OutcomeAccept:
		return s.mergeService.Merge(contribute, statemachine.ContributeStatusVoting)
	case OutcomeReject:
		return s.reject(id, statemachine.ContributeStatusVoting)
	default:
		_, err := s.debateService.OpenFrom(contribute)
		return err
	}
}

// ResolveDebate 讨论强制关闭后的终局裁决
// 使用讨论期内累计的全部投票；仍不明朗时强制拒绝，保证流程终止，不允许再次升级
func (s *ContributeService) ResolveDebate(id uint) error {
	contribute, err := s.contributeRepo.Get(id)
	if err != nil {
		return err
	}
	if statemachine.ContributeStatus(contribute.Status) != statemachine.ContributeStatusDebating {
		return fmt.Errorf("contribute %d is %s: %w", id, contribute.Status, repository.ErrInvalidState)
	}

	summary, err := s.voteService.Summarize(id)
	if err != nil {
		return err
	}
	outcome := s.voteService.Decide(summary)
	klog.V(6).Infof("讨论终局裁决: contributeID=%d, agree=%d, disagree=%d, weight=%d, outcome=%s",
		id, summary.AgreeCount, summary.DisagreeCount, summary.TotalWeight, outcome)

	if outcome == OutcomeAccept {
		return s.mergeService.Merge(contribute, statemachine.ContributeStatusDebating)
	}
	return s.reject(id, statemachine.ContributeStatusDebating)
}

// reject 条件翻转到 rejected 并出箱拒绝事件
func (s *ContributeService) reject(id uint, fromStatus statemachine.ContributeStatus) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.contributeRepo.WithTx(tx).CompareAndSetStatus(id,
			string(fromStatus), string(statemachine.ContributeStatusRejected)); err != nil {
			return err
		}
		return s.outboxRepo.WithTx(tx).Create(&model.OutboxEvent{
			EventID:      uuid.NewString(),
			EventType:    string(eventbus.ContributeEventRejected),
			ContributeID: id,
			CreatedAt:    time.Now(),
		})
	})
}

func (s *ContributeService) Get(id uint) (*model.Contribute, error) {
	return s.contributeRepo.Get(id)
}

func (s *ContributeService) ListByDocument(documentID uint) ([]model.Contribute, error) {
	return s.contributeRepo.ListByDocument(documentID)
}

func (s *ContributeService) ListByMember(memberID uint) ([]model.Contribute, error) {
	return s.contributeRepo.ListByMember(memberID)
}

func (s *ContributeService) ListByStatus(status string) ([]model.Contribute, error) {
	if err := validation.Validate(status, validation.Required, validation.In(
		string(statemachine.ContributeStatusPending),
		string(statemachine.ContributeStatusVoting),
		string(statemachine.ContributeStatusDebating),
		string(statemachine.ContributeStatusMerged),
		string(statemachine.ContributeStatusRejected),
	)); err != nil {
		return nil, err
	}
	return s.contributeRepo.ListByStatus(status)
}

func (s *ContributeService) ListExpiredVoting(now time.Time) ([]model.Contribute, error) {
	return s.contributeRepo.ListExpiredVoting(now)
}

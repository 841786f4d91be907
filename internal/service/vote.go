package service

import (
	"fmt"
	"time"

	"github.com/collabdoc/backend/config"
	"github.com/collabdoc/backend/internal/model"
	"github.com/collabdoc/backend/internal/repository"
	"github.com/collabdoc/backend/internal/service/statemachine"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"k8s.io/klog/v2"
)

// VoteOutcome 投票裁决结果
type VoteOutcome string

const (
	OutcomeAccept       VoteOutcome = "accept"
	OutcomeReject       VoteOutcome = "reject"
	OutcomeInconclusive VoteOutcome = "inconclusive"
)

type VoteService struct {
	cfg            *config.Config
	voteRepo       repository.VoteRepository
	contributeRepo repository.ContributeRepository
}

func NewVoteService(cfg *config.Config, voteRepo repository.VoteRepository, contributeRepo repository.ContributeRepository) *VoteService {
	return &VoteService{
		cfg:            cfg,
		voteRepo:       voteRepo,
		contributeRepo: contributeRepo,
	}
}

type CastVoteRequest struct {
	ContributeID uint   `json:"contribute_id"`
	MemberID     uint   `json:"member_id"`
	Choice       string `json:"choice"`
	Weight       int    `json:"weight"` // 由身份子系统给出，核心不做校验与计算
}

func (req CastVoteRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ContributeID, validation.Required),
		validation.Field(&req.MemberID, validation.Required),
		validation.Field(&req.Choice, validation.Required,
			validation.In(model.VoteChoiceAgree, model.VoteChoiceDisagree)),
		validation.Field(&req.Weight, validation.Min(1)),
	)
}

// CastVote 落一票
// 仅在 voting/debating 状态下合法，同一成员重复投票覆盖之前的选择
func (s *VoteService) CastVote(req CastVoteRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	contribute, err := s.contributeRepo.Get(req.ContributeID)
	if err != nil {
		return err
	}
	if !statemachine.CanVote(statemachine.ContributeStatus(contribute.Status)) {
		return fmt.Errorf("contribute %d is %s: %w",
			contribute.ID, contribute.Status, repository.ErrInvalidState)
	}

	vote := &model.Vote{
		ContributeID: req.ContributeID,
		MemberID:     req.MemberID,
		Choice:       req.Choice,
		Weight:       req.Weight,
		CreatedAt:    time.Now(),
	}
	if err := s.voteRepo.Upsert(vote); err != nil {
		return err
	}
	klog.V(6).Infof("投票成功: contributeID=%d, memberID=%d, choice=%s, weight=%d",
		req.ContributeID, req.MemberID, req.Choice, req.Weight)
	return nil
}

// Summarize 实时聚合投票结果
func (s *VoteService) Summarize(contributeID uint) (*model.VoteResultSummary, error) {
	return s.voteRepo.Summarize(contributeID)
}

// Decide 根据汇总结果裁决
// 赞成比例达到 accept 阈值且参与权重满足下限则通过；
// 反对比例超过 reject 阈值则否决；其余情况视为结果不明朗
func (s *VoteService) Decide(summary *model.VoteResultSummary) VoteOutcome {
	votes := summary.AgreeCount + summary.DisagreeCount
	if votes == 0 {
		return OutcomeInconclusive
	}

	agreeRatio := float64(summary.AgreeCount) / float64(votes)
	disagreeRatio := float64(summary.DisagreeCount) / float64(votes)

	if agreeRatio >= s.cfg.Vote.AcceptThreshold && summary.TotalWeight >= s.cfg.Vote.QuorumWeight {
		return OutcomeAccept
	}
	if disagreeRatio > s.cfg.Vote.RejectThreshold {
		return OutcomeReject
	}
	return OutcomeInconclusive
}

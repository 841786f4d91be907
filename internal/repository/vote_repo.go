package repository

import (
	"time"

	"github.com/collabdoc/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Upsert 落一票
// 主键为 (contribute_id, member_id)，同一成员再次投票覆盖之前的选择与权重
func (r *voteRepository) Upsert(vote *model.Vote) error {
	vote.UpdatedAt = time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "contribute_id"},
			{Name: "member_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"choice", "weight", "updated_at"}),
	}).Create(vote).Error
}

// Summarize 聚合投票结果
// 每次调用实时计算，票数变化后不会读到过期汇总
func (r *voteRepository) Summarize(contributeID uint) (*model.VoteResultSummary, error) {
	var result struct {
		TotalWeight   int
		AgreeCount    int
		DisagreeCount int
	}
	err := r.db.Model(&model.Vote{}).
		Where("contribute_id = ?", contributeID).
		Select("COALESCE(SUM(weight), 0) AS total_weight, "+
			"COALESCE(SUM(CASE WHEN choice = ? THEN 1 ELSE 0 END), 0) AS agree_count, "+
			"COALESCE(SUM(CASE WHEN choice = ? THEN 1 ELSE 0 END), 0) AS disagree_count",
			model.VoteChoiceAgree, model.VoteChoiceDisagree).
		Scan(&result).Error
	if err != nil {
		return nil, err
	}
	return &model.VoteResultSummary{
		TotalWeight:   result.TotalWeight,
		AgreeCount:    result.AgreeCount,
		DisagreeCount: result.DisagreeCount,
	}, nil
}

func (r *voteRepository) ListByContribute(contributeID uint) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.Where("contribute_id = ?", contributeID).
		Order("member_id asc").
		Find(&votes).Error
	return votes, err
}

package service

import (
	"testing"
	"time"

	"github.com/collabdoc/backend/internal/model"
	"github.com/collabdoc/backend/internal/service/statemachine"
)

func (env *testEnv) waitForStatus(t *testing.T, contributeID uint, want statemachine.ContributeStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, err := env.contributeService.Get(contributeID)
		if err != nil {
			t.Fatalf("get contribute error: %v", err)
		}
		if got.Status == string(want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	got, _ := env.contributeService.Get(contributeID)
	t.Fatalf("contribute %d stuck in %s, want %s", contributeID, got.Status, want)
}

// TestSweeperSettlesExpiredVoting 到期的投票窗口被巡检结算
func TestSweeperSettlesExpiredVoting(t *testing.T) {
	env := newTestEnv(t)
	doc, _ := env.createDocument(t)
	contribute := env.createVotingContribute(t, doc.ID, []AmendmentRequest{
		{Type: model.AmendmentTypeCreate, Content: "新章节"},
	})
	env.castVotes(t, contribute.ID, 4, 0, 3)

	// 把投票截止时间拨到过去
	past := time.Now().Add(-time.Minute)
	if err := env.db.Model(&model.Contribute{}).
		Where("id = ?", contribute.ID).
		Update("voting_end_at", past).Error; err != nil {
		t.Fatalf("backdate voting window error: %v", err)
	}

	sweeper, err := NewSweeper(env.cfg, env.contributeService, env.debateService)
	if err != nil {
		t.Fatalf("NewSweeper error: %v", err)
	}
	defer sweeper.Stop()

	sweeper.SweepExpiredVotingWindows()
	env.waitForStatus(t, contribute.ID, statemachine.ContributeStatusMerged)
}

// TestSweeperClosesExpiredDebate 到期的讨论被关闭并终局裁决
func TestSweeperClosesExpiredDebate(t *testing.T) {
	env := newTestEnv(t)
	contribute, debate := env.openDebate(t)

	if err := env.db.Model(&model.Debate{}).
		Where("id = ?", debate.ID).
		Update("end_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate debate error: %v", err)
	}

	sweeper, err := NewSweeper(env.cfg, env.contributeService, env.debateService)
	if err != nil {
		t.Fatalf("NewSweeper error: %v", err)
	}
	defer sweeper.Stop()

	sweeper.SweepExpiredDebates()
	env.waitForStatus(t, contribute.ID, statemachine.ContributeStatusRejected)

	got, _ := env.debateRepo.Get(debate.ID)
	if got.Status != model.DebateStatusClosed {
		t.Fatalf("expected closed debate, got %s", got.Status)
	}
}

// TestSweeperSkipsActiveVoting 未到期的投票不受巡检影响
func TestSweeperSkipsActiveVoting(t *testing.T) {
	env := newTestEnv(t)
	doc, _ := env.createDocument(t)
	contribute := env.createVotingContribute(t, doc.ID, []AmendmentRequest{
		{Type: model.AmendmentTypeCreate, Content: "新章节"},
	})

	sweeper, err := NewSweeper(env.cfg, env.contributeService, env.debateService)
	if err != nil {
		t.Fatalf("NewSweeper error: %v", err)
	}
	defer sweeper.Stop()

	sweeper.SweepExpiredVotingWindows()
	time.Sleep(50 * time.Millisecond)

	got, _ := env.contributeService.Get(contribute.ID)
	if got.Status != string(statemachine.ContributeStatusVoting) {
		t.Fatalf("active voting should be untouched, got %s", got.Status)
	}
}

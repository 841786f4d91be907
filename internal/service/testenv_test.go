package service

import (
	"testing"
	"time"

	"github.com/collabdoc/backend/config"
	"github.com/collabdoc/backend/internal/model"
	"github.com/collabdoc/backend/internal/repository"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// testEnv 基于内存 sqlite 的服务测试环境
type testEnv struct {
	cfg               *config.Config
	db                *gorm.DB
	docRepo           repository.DocumentRepository
	sectionRepo       repository.SectionRepository
	contributeRepo    repository.ContributeRepository
	voteRepo          repository.VoteRepository
	debateRepo        repository.DebateRepository
	outboxRepo        repository.OutboxRepository
	documentService   *DocumentService
	voteService       *VoteService
	mergeService      *MergeService
	debateService     *DebateService
	contributeService *ContributeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Document{},
		&model.Section{},
		&model.Contribute{},
		&model.Amendment{},
		&model.Vote{},
		&model.Debate{},
		&model.Comment{},
		&model.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate error: %v", err)
	}

	cfg := &config.Config{
		Vote: config.VoteConfig{
			AcceptThreshold: 0.66,
			RejectThreshold: 0.5,
			QuorumWeight:    10,
			VotingWindow:    24 * time.Hour,
		},
		Debate: config.DebateConfig{
			Extension:   24 * time.Hour,
			MaxLifetime: 7 * 24 * time.Hour,
		},
		Sweep: config.SweepConfig{
			Interval: time.Minute,
			Workers:  2,
		},
	}

	env := &testEnv{
		cfg:            cfg,
		db:             db,
		docRepo:        repository.NewDocumentRepository(db),
		sectionRepo:    repository.NewSectionRepository(db),
		contributeRepo: repository.NewContributeRepository(db),
		voteRepo:       repository.NewVoteRepository(db),
		debateRepo:     repository.NewDebateRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
	}
	env.documentService = NewDocumentService(cfg, db, env.docRepo, env.sectionRepo)
	env.voteService = NewVoteService(cfg, env.voteRepo, env.contributeRepo)
	env.mergeService = NewMergeService(db, env.sectionRepo, env.contributeRepo, env.outboxRepo)
	env.debateService = NewDebateService(cfg, db, env.debateRepo, env.contributeRepo, env.outboxRepo)
	env.contributeService = NewContributeService(cfg, db, env.contributeRepo, env.docRepo, env.sectionRepo, env.outboxRepo,
		env.voteService, env.mergeService, env.debateService)
	return env
}

// createDocument 建一篇含两个章节的文档，返回文档与章节列表
func (env *testEnv) createDocument(t *testing.T) (*model.Document, []SectionResponse) {
	t.Helper()
	doc, err := env.documentService.Create(CreateDocumentRequest{
		Title:    "测试文档",
		MemberID: 1,
		Sections: []CreateSectionRequest{
			{Heading: 1, Title: "引言", Content: "引言内容"},
			{Heading: 1, Title: "正文", Content: "正文内容"},
		},
	})
	if err != nil {
		t.Fatalf("create document error: %v", err)
	}
	resp, err := env.documentService.GetAtRevision(doc.ID, nil)
	if err != nil {
		t.Fatalf("get document error: %v", err)
	}
	return doc, resp.Sections
}

// createVotingContribute 创建一个直接进入 voting 的提案
func (env *testEnv) createVotingContribute(t *testing.T, documentID uint, amendments []AmendmentRequest) *model.Contribute {
	t.Helper()
	contribute, err := env.contributeService.Create(CreateContributeRequest{
		DocumentID: documentID,
		MemberID:   1,
		Title:      "测试提案",
		Amendments: amendments,
	})
	if err != nil {
		t.Fatalf("create contribute error: %v", err)
	}
	contribute, err = env.contributeService.Open(contribute.ID)
	if err != nil {
		t.Fatalf("open contribute error: %v", err)
	}
	return contribute
}

// castVotes 批量落票
func (env *testEnv) castVotes(t *testing.T, contributeID uint, agree, disagree, weight int) {
	t.Helper()
	member := uint(100)
	for i := 0; i < agree; i++ {
		member++
		if err := env.voteService.CastVote(CastVoteRequest{
			ContributeID: contributeID, MemberID: member,
			Choice: model.VoteChoiceAgree, Weight: weight,
		}); err != nil {
			t.Fatalf("cast agree vote error: %v", err)
		}
	}
	for i := 0; i < disagree; i++ {
		member++
		if err := env.voteService.CastVote(CastVoteRequest{
			ContributeID: contributeID, MemberID: member,
			Choice: model.VoteChoiceDisagree, Weight: weight,
		}); err != nil {
			t.Fatalf("cast disagree vote error: %v", err)
		}
	}
}

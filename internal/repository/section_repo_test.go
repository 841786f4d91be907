package repository

import (
	"errors"
	"testing"

	"github.com/collabdoc/backend/internal/model"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestSectionRepositoryInsertAndRead(t *testing.T) {
	db := newTestDB(t)
	repo := NewSectionRepository(db)

	first, err := repo.InsertSection(1, 1, nil, 1, "引言", "第一段")
	if err != nil {
		t.Fatalf("InsertSection error: %v", err)
	}
	second, err := repo.InsertSection(1, 1, &first.SectionID, 1, "正文", "第二段")
	if err != nil {
		t.Fatalf("InsertSection error: %v", err)
	}

	sections, err := repo.GetSectionsAtRevision(1, 1)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].SectionID != first.SectionID || sections[1].SectionID != second.SectionID {
		t.Fatalf("unexpected order: %d, %d", sections[0].SectionID, sections[1].SectionID)
	}
	if sections[0].Orders != 0 || sections[1].Orders != 1 {
		t.Fatalf("unexpected orders: %d, %d", sections[0].Orders, sections[1].Orders)
	}
}

// TestSectionRepositoryInsertShiftsSiblings 中间插入把后续章节顺序整体后移
func TestSectionRepositoryInsertShiftsSiblings(t *testing.T) {
	db := newTestDB(t)
	repo := NewSectionRepository(db)

	a, _ := repo.InsertSection(1, 1, nil, 1, "A", "a")
	b, err := repo.InsertSection(1, 1, &a.SectionID, 1, "B", "b")
	if err != nil {
		t.Fatalf("InsertSection error: %v", err)
	}

	// 在 A 之后插入 C，B 应被后移
	c, err := repo.InsertSection(1, 2, &a.SectionID, 1, "C", "c")
	if err != nil {
		t.Fatalf("InsertSection error: %v", err)
	}

	sections, err := repo.GetSectionsAtRevision(1, 2)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	wantOrder := []uint{a.SectionID, c.SectionID, b.SectionID}
	for i, section := range sections {
		if section.SectionID != wantOrder[i] {
			t.Fatalf("unexpected order at %d: got %d, want %d", i, section.SectionID, wantOrder[i])
		}
	}

	// 头部插入（afterSectionID 为空）排在最前
	head, err := repo.InsertSection(1, 3, nil, 1, "头部", "h")
	if err != nil {
		t.Fatalf("InsertSection error: %v", err)
	}
	sections, err = repo.GetSectionsAtRevision(1, 3)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	if sections[0].SectionID != head.SectionID {
		t.Fatalf("expected head section first, got %d", sections[0].SectionID)
	}
}

// TestSectionRepositoryOrdersStayContiguous 任意位置的多次插入后顺序仍是 0..N-1 的连续排列
func TestSectionRepositoryOrdersStayContiguous(t *testing.T) {
	db := newTestDB(t)
	repo := NewSectionRepository(db)

	insert := func(revision int, after *uint, title string) *model.Section {
		t.Helper()
		section, err := repo.InsertSection(1, revision, after, 1, title, title)
		if err != nil {
			t.Fatalf("InsertSection %s error: %v", title, err)
		}
		return section
	}

	// 头部、中间、尾部交替插入
	s1 := insert(1, nil, "一")
	s2 := insert(1, &s1.SectionID, "二")
	s3 := insert(2, nil, "三")            // 头部
	s4 := insert(3, &s1.SectionID, "四")  // 中间
	s5 := insert(4, &s2.SectionID, "五")  // 尾部
	s6 := insert(5, &s3.SectionID, "六")  // 再次中间

	sections, err := repo.GetSectionsAtRevision(1, 5)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	wantIDs := []uint{s3.SectionID, s6.SectionID, s1.SectionID, s4.SectionID, s2.SectionID, s5.SectionID}
	if len(sections) != len(wantIDs) {
		t.Fatalf("expected %d sections, got %d", len(wantIDs), len(sections))
	}
	for i, section := range sections {
		if section.SectionID != wantIDs[i] {
			t.Fatalf("unexpected section at %d: got %d, want %d", i, section.SectionID, wantIDs[i])
		}
		// 无空洞、无重复：排序后的第 i 个章节顺序值恰为 i
		if section.Orders != i {
			t.Fatalf("orders not contiguous at %d: got %d", i, section.Orders)
		}
	}
}

// TestSectionRepositoryReviseKeepsHistory 追加新版本后旧版本仍可读取
func TestSectionRepositoryReviseKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewSectionRepository(db)

	section, err := repo.InsertSection(1, 1, nil, 1, "标题", "初稿")
	if err != nil {
		t.Fatalf("InsertSection error: %v", err)
	}
	if _, err := repo.ReviseSection(section.SectionID, 2, 1, "标题", "修订稿"); err != nil {
		t.Fatalf("ReviseSection error: %v", err)
	}

	old, err := repo.GetSectionsAtRevision(1, 1)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	if *old[0].Content != "初稿" {
		t.Fatalf("revision 1 content changed: %s", *old[0].Content)
	}

	latest, err := repo.GetSectionsAtRevision(1, 2)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	if *latest[0].Content != "修订稿" {
		t.Fatalf("unexpected revision 2 content: %s", *latest[0].Content)
	}

	history, err := repo.GetHistory(section.SectionID)
	if err != nil {
		t.Fatalf("GetHistory error: %v", err)
	}
	if len(history) != 2 || history[0].Revision != 1 || history[1].Revision != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

// TestSectionRepositoryDeleteHidesSection 删除后该章节在新版本不可见，旧版本仍可见
func TestSectionRepositoryDeleteHidesSection(t *testing.T) {
	db := newTestDB(t)
	repo := NewSectionRepository(db)

	a, _ := repo.InsertSection(1, 1, nil, 1, "A", "a")
	b, _ := repo.InsertSection(1, 1, &a.SectionID, 1, "B", "b")

	if _, err := repo.DeleteSection(a.SectionID, 2); err != nil {
		t.Fatalf("DeleteSection error: %v", err)
	}

	sections, err := repo.GetSectionsAtRevision(1, 2)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	if len(sections) != 1 || sections[0].SectionID != b.SectionID {
		t.Fatalf("expected only section %d, got %+v", b.SectionID, sections)
	}

	old, err := repo.GetSectionsAtRevision(1, 1)
	if err != nil {
		t.Fatalf("GetSectionsAtRevision error: %v", err)
	}
	if len(old) != 2 {
		t.Fatalf("revision 1 should still have 2 sections, got %d", len(old))
	}

	latest, err := repo.GetLatestRevision(a.SectionID)
	if err != nil {
		t.Fatalf("GetLatestRevision error: %v", err)
	}
	if latest.Content != nil {
		t.Fatal("latest revision of deleted section should have nil content")
	}
}

func TestSectionRepositoryMaxRevision(t *testing.T) {
	db := newTestDB(t)
	repo := NewSectionRepository(db)

	max, err := repo.MaxRevision(1)
	if err != nil {
		t.Fatalf("MaxRevision error: %v", err)
	}
	if max != 0 {
		t.Fatalf("empty document should have max revision 0, got %d", max)
	}

	section, _ := repo.InsertSection(1, 1, nil, 1, "A", "a")
	repo.ReviseSection(section.SectionID, 5, 1, "A", "a2")

	max, err = repo.MaxRevision(1)
	if err != nil {
		t.Fatalf("MaxRevision error: %v", err)
	}
	if max != 5 {
		t.Fatalf("expected max revision 5, got %d", max)
	}
}

func TestSectionRepositoryNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewSectionRepository(db)

	if _, err := repo.GetSectionsAtRevision(99, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetLatestRevision(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetHistory(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

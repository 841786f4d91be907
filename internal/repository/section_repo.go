package repository

import (
	"database/sql"
	"errors"

	"github.com/collabdoc/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sectionRepository struct {
	db *gorm.DB
}

func NewSectionRepository(db *gorm.DB) SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) WithTx(tx *gorm.DB) SectionRepository {
	return &sectionRepository{db: tx}
}

// GetSectionsAtRevision 读取文档在指定版本下的章节列表
// 对每个 section_id 取 revision <= 指定版本的最大版本行，跳过内容为空（已删除）的行
func (r *sectionRepository) GetSectionsAtRevision(documentID uint, revision int) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.
		Where("document_id = ? AND content IS NOT NULL AND revision = ("+
			"SELECT MAX(s2.revision) FROM sections s2 "+
			"WHERE s2.section_id = sections.section_id AND s2.revision <= ?)",
			documentID, revision).
		Order("orders asc").
		Find(&sections).Error
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, ErrNotFound
	}
	return sections, nil
}

// GetLatestRevision 获取该章节最近一次写入的版本行
func (r *sectionRepository) GetLatestRevision(sectionID uint) (*model.Section, error) {
	return r.latestRevision(r.db, sectionID)
}

// GetLatestRevisionForUpdate 带行锁读取最新版本行
// 合并引擎的冲突检查必须使用锁定读，防止两个并发合并都把同一行当作未删除
func (r *sectionRepository) GetLatestRevisionForUpdate(sectionID uint) (*model.Section, error) {
	tx := r.db
	// sqlite 写事务天然串行，FOR UPDATE 仅对 mysql 生效
	if tx.Dialector.Name() == "mysql" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.latestRevision(tx, sectionID)
}

func (r *sectionRepository) latestRevision(tx *gorm.DB, sectionID uint) (*model.Section, error) {
	var section model.Section
	err := tx.Where("section_id = ?", sectionID).
		Order("revision desc").
		First(&section).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// GetHistory 获取章节的全部版本行，按版本升序
func (r *sectionRepository) GetHistory(sectionID uint) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.Where("section_id = ?", sectionID).
		Order("revision asc").
		Find(&sections).Error
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, ErrNotFound
	}
	return sections, nil
}

// MaxRevision 文档当前最大版本号（所有章节行的最大 revision），无章节时为 0
func (r *sectionRepository) MaxRevision(documentID uint) (int, error) {
	var maxRevision sql.NullInt64
	if err := r.db.Model(&model.Section{}).
		Where("document_id = ?", documentID).
		Select("MAX(revision)").
		Scan(&maxRevision).Error; err != nil {
		return 0, err
	}
	if !maxRevision.Valid {
		return 0, nil
	}
	return int(maxRevision.Int64), nil
}

// InsertSection 在指定位置插入新章节
// 分配新 section_id 并写入指定版本的首行，同时把插入点之后的章节顺序整体后移一位
// 顺序平移与插入必须处于同一事务，调用方负责将本仓库绑定到事务
func (r *sectionRepository) InsertSection(documentID uint, revision int, afterSectionID *uint, heading int, title, content string) (*model.Section, error) {
	insertOrders := 0
	if afterSectionID != nil {
		after, err := r.effectiveRevision(*afterSectionID, revision)
		if err != nil {
			return nil, err
		}
		insertOrders = after.Orders + 1
	}

	// 平移当前快照下顺序 >= 插入点的章节
	// 子查询确保只平移每个 section_id 在该快照下的生效行
	if err := r.db.Exec(
		"UPDATE sections SET orders = orders + 1 "+
			"WHERE document_id = ? AND orders >= ? AND revision = ("+
			"SELECT MAX(s2.revision) FROM sections s2 "+
			"WHERE s2.section_id = sections.section_id AND s2.revision <= ?)",
		documentID, insertOrders, revision).Error; err != nil {
		return nil, err
	}

	sectionID, err := r.nextSectionID()
	if err != nil {
		return nil, err
	}

	section := &model.Section{
		SectionID:  sectionID,
		Revision:   revision,
		DocumentID: documentID,
		Heading:    heading,
		Title:      title,
		Content:    &content,
		Orders:     insertOrders,
	}
	if err := r.db.Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

// ReviseSection 追加一行新版本，保持原有顺序
func (r *sectionRepository) ReviseSection(sectionID uint, revision int, heading int, title, content string) (*model.Section, error) {
	latest, err := r.latestRevision(r.db, sectionID)
	if err != nil {
		return nil, err
	}

	section := &model.Section{
		SectionID:  sectionID,
		Revision:   revision,
		DocumentID: latest.DocumentID,
		Heading:    heading,
		Title:      title,
		Content:    &content,
		Orders:     latest.Orders,
	}
	if err := r.db.Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

// DeleteSection 追加一行内容为空的版本，表示自该版本起删除
// 顺序字段保留，读取时跳过即可，兄弟章节的顺序计算不受影响
func (r *sectionRepository) DeleteSection(sectionID uint, revision int) (*model.Section, error) {
	latest, err := r.latestRevision(r.db, sectionID)
	if err != nil {
		return nil, err
	}

	section := &model.Section{
		SectionID:  sectionID,
		Revision:   revision,
		DocumentID: latest.DocumentID,
		Heading:    latest.Heading,
		Title:      latest.Title,
		Content:    nil,
		Orders:     latest.Orders,
	}
	if err := r.db.Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

// effectiveRevision 章节在指定快照版本下的生效行
func (r *sectionRepository) effectiveRevision(sectionID uint, revision int) (*model.Section, error) {
	var section model.Section
	err := r.db.Where("section_id = ? AND revision <= ?", sectionID, revision).
		Order("revision desc").
		First(&section).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &section, nil
}

// nextSectionID 分配新的章节ID
// 依赖事务隔离保证并发分配不重复
func (r *sectionRepository) nextSectionID() (uint, error) {
	var maxID sql.NullInt64
	if err := r.db.Model(&model.Section{}).
		Select("MAX(section_id)").
		Scan(&maxID).Error; err != nil {
		return 0, err
	}
	if !maxID.Valid {
		return 1, nil
	}
	return uint(maxID.Int64) + 1, nil
}

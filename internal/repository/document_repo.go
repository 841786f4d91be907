package repository

import (
	"errors"
	"time"

	"github.com/collabdoc/backend/internal/model"
	"gorm.io/gorm"
)

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) Get(id uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("deleted_at IS NULL").First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List() ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("deleted_at IS NULL").
		Order("id asc").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) UpdateTitle(id uint, title string) error {
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"title":      title,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 逻辑删除
// 章节行仍引用该文档，历史版本查询不受影响
func (r *documentRepository) Delete(id uint) error {
	res := r.db.Model(&model.Document{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

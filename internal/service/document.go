package service

import (
	"time"

	"github.com/collabdoc/backend/config"
	"github.com/collabdoc/backend/internal/model"
	"github.com/collabdoc/backend/internal/repository"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
)

type DocumentService struct {
	cfg         *config.Config
	db          *gorm.DB
	docRepo     repository.DocumentRepository
	sectionRepo repository.SectionRepository
}

func NewDocumentService(cfg *config.Config, db *gorm.DB, docRepo repository.DocumentRepository, sectionRepo repository.SectionRepository) *DocumentService {
	return &DocumentService{
		cfg:         cfg,
		db:          db,
		docRepo:     docRepo,
		sectionRepo: sectionRepo,
	}
}

type CreateSectionRequest struct {
	Heading int    `json:"heading"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateDocumentRequest struct {
	Title    string                 `json:"title"`
	MemberID uint                   `json:"member_id"`
	Sections []CreateSectionRequest `json:"sections"`
}

func (req CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.MemberID, validation.Required),
	)
}

// SectionResponse 章节读取视图
type SectionResponse struct {
	SectionID uint   `json:"section_id"`
	Revision  int    `json:"revision"`
	Heading   int    `json:"heading"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Orders    int    `json:"orders"`
}

// DocumentResponse 文档在某一版本下的完整内容
type DocumentResponse struct {
	DocumentID uint              `json:"document_id"`
	Title      string            `json:"title"`
	Revision   int               `json:"revision"`
	Sections   []SectionResponse `json:"sections"`
}

// Create 创建文档及其初始章节
// 初始章节全部以版本 1 写入，文档与章节处于同一事务
func (s *DocumentService) Create(req CreateDocumentRequest) (*model.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc := &model.Document{
		Title:     req.Title,
		MemberID:  req.MemberID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		sectionRepo := s.sectionRepo.WithTx(tx)
		var previousID *uint
		for _, sec := range req.Sections {
			created, err := sectionRepo.InsertSection(doc.ID, 1, previousID, sec.Heading, sec.Title, sec.Content)
			if err != nil {
				return err
			}
			id := created.SectionID
			previousID = &id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetAtRevision 读取文档在指定版本下的内容
// revision 为 nil 表示读取最新版本（所有章节行的最大 revision）
func (s *DocumentService) GetAtRevision(documentID uint, revision *int) (*DocumentResponse, error) {
	doc, err := s.docRepo.Get(documentID)
	if err != nil {
		return nil, err
	}

	rev := 0
	if revision != nil {
		rev = *revision
	} else {
		rev, err = s.sectionRepo.MaxRevision(documentID)
		if err != nil {
			return nil, err
		}
	}
	if rev <= 0 {
		return nil, repository.ErrNotFound
	}

	sections, err := s.sectionRepo.GetSectionsAtRevision(documentID, rev)
	if err != nil {
		return nil, err
	}

	resp := &DocumentResponse{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Revision:   rev,
		Sections:   make([]SectionResponse, 0, len(sections)),
	}
	for _, sec := range sections {
		content := ""
		if sec.Content != nil {
			content = *sec.Content
		}
		resp.Sections = append(resp.Sections, SectionResponse{
			SectionID: sec.SectionID,
			Revision:  sec.Revision,
			Heading:   sec.Heading,
			Title:     sec.Title,
			Content:   content,
			Orders:    sec.Orders,
		})
	}
	return resp, nil
}

// GetSectionHistory 章节的全部版本，按版本升序
func (s *DocumentService) GetSectionHistory(sectionID uint) ([]model.Section, error) {
	return s.sectionRepo.GetHistory(sectionID)
}

func (s *DocumentService) List() ([]model.Document, error) {
	return s.docRepo.List()
}

func (s *DocumentService) UpdateTitle(id uint, title string) error {
	if err := validation.Validate(title, validation.Required, validation.Length(1, 255)); err != nil {
		return err
	}
	return s.docRepo.UpdateTitle(id, title)
}

func (s *DocumentService) Delete(id uint) error {
	return s.docRepo.Delete(id)
}

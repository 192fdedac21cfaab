package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"etiqueta/internal/database"
)

// TemplateStore persists label templates.
type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) Create(ctx context.Context, tpl *database.Template) error {
	if err := s.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (s *TemplateStore) GetByID(ctx context.Context, id uint) (*database.Template, error) {
	var tpl database.Template
	if err := s.db.WithContext(ctx).First(&tpl, id).Error; err != nil {
		return nil, translate(err)
	}
	return &tpl, nil
}

func (s *TemplateStore) List(ctx context.Context) ([]database.Template, error) {
	var templates []database.Template
	if err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateStore) Update(ctx context.Context, tpl *database.Template) error {
	res := s.db.WithContext(ctx).
		Model(&database.Template{}).
		Where("id = ?", tpl.ID).
		Updates(map[string]any{
			"name":    tpl.Name,
			"width":   tpl.Width,
			"height":  tpl.Height,
			"fields":  tpl.Fields,
			"raw_zpl": tpl.RawZPL,
		})
	if res.Error != nil {
		return fmt.Errorf("update template %d: %w", tpl.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TemplateStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&database.Template{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete template %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

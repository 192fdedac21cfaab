package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"etiqueta/internal/database"
)

// PrinterStore persists printer connection records.
type PrinterStore struct {
	db *gorm.DB
}

func NewPrinterStore(db *gorm.DB) *PrinterStore {
	return &PrinterStore{db: db}
}

// Create persists a printer, defaulting the port to 9100 when unset.
func (s *PrinterStore) Create(ctx context.Context, printer *database.Printer) error {
	if printer.Port <= 0 {
		printer.Port = database.DefaultPrinterPort
	}
	if err := s.db.WithContext(ctx).Create(printer).Error; err != nil {
		return fmt.Errorf("create printer: %w", err)
	}
	return nil
}

func (s *PrinterStore) GetByID(ctx context.Context, id uint) (*database.Printer, error) {
	var printer database.Printer
	if err := s.db.WithContext(ctx).First(&printer, id).Error; err != nil {
		return nil, translate(err)
	}
	return &printer, nil
}

func (s *PrinterStore) List(ctx context.Context) ([]database.Printer, error) {
	var printers []database.Printer
	if err := s.db.WithContext(ctx).
		Order("name ASC").
		Find(&printers).Error; err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	return printers, nil
}

func (s *PrinterStore) Update(ctx context.Context, printer *database.Printer) error {
	if printer.Port <= 0 {
		printer.Port = database.DefaultPrinterPort
	}
	res := s.db.WithContext(ctx).
		Model(&database.Printer{}).
		Where("id = ?", printer.ID).
		Updates(map[string]any{
			"name": printer.Name,
			"ip":   printer.IP,
			"port": printer.Port,
		})
	if res.Error != nil {
		return fmt.Errorf("update printer %d: %w", printer.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PrinterStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&database.Printer{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete printer %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

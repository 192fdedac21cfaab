package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job status values. Completed and cancelled are terminal; failed jobs can be
// re-queued by an explicit user retry.
const (
	JobStatusPending   = "pending"
	JobStatusPrinting  = "printing"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// DefaultPrinterPort is the raw TCP socket port Zebra printers listen on.
const DefaultPrinterPort = 9100

// Template is a reusable label layout. Fields holds the JSONB-encoded array of
// field definitions and is the source of truth when the ZPL is regenerated;
// RawZPL is the last generated (or hand-edited) command text and may diverge.
type Template struct {
	gorm.Model
	Name   string         `gorm:"size:255"`
	Width  int            `gorm:"not null"`
	Height int            `gorm:"not null"`
	Fields datatypes.JSON `gorm:"type:jsonb"`
	RawZPL string         `gorm:"column:raw_zpl;type:text"`
}

// Printer is a configured network label printer.
type Printer struct {
	gorm.Model
	Name string `gorm:"size:255"`
	IP   string `gorm:"size:64"`
	Port int    `gorm:"default:9100"`
}

// PrintJob is one unit of print work: a fully substituted ZPL command plus
// target printer and copy count. Jobs accumulate as an audit trail; only the
// retention sweep ever deletes them.
type PrintJob struct {
	gorm.Model
	Status       string `gorm:"size:16;index;default:pending"`
	Command      string `gorm:"type:text"`
	PrinterID    *uint  `gorm:"index"`
	Printer      *Printer
	Quantity     int    `gorm:"default:1"`
	TestPrint    bool   `gorm:"default:false"`
	ErrorMessage string `gorm:"size:1024"`
	// Label dimensions in dots, copied from the template at submission time
	// so the preview renderer does not need to re-resolve the template.
	LabelWidth  int
	LabelHeight int
	// PreviewObjectKey points at the rendered PNG in object storage once the
	// preview worker has processed the job.
	PreviewObjectKey string `gorm:"size:512"`
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"etiqueta/internal/database"
	"etiqueta/internal/printing"
	"etiqueta/internal/store"
)

// PrinterHandler serves printer registry CRUD and the liveness probe.
type PrinterHandler struct {
	printers     *store.PrinterStore
	probeTimeout time.Duration
}

func NewPrinterHandler(printers *store.PrinterStore, probeTimeout time.Duration) *PrinterHandler {
	return &PrinterHandler{printers: printers, probeTimeout: probeTimeout}
}

type printerRequest struct {
	Name string `json:"name" binding:"required"`
	IP   string `json:"ip" binding:"required"`
	// Port defaults to 9100 when omitted or non-positive.
	Port int `json:"port"`
}

type printerResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// POST /v1/printers
func (h *PrinterHandler) CreatePrinter(c *gin.Context) {
	var req printerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model := &database.Printer{Name: req.Name, IP: req.IP, Port: req.Port}
	if err := h.printers.Create(c.Request.Context(), model); err != nil {
		Internal(c, "failed to create printer")
		return
	}
	c.JSON(http.StatusCreated, toPrinterResponse(model))
}

// GET /v1/printers
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers, err := h.printers.List(c.Request.Context())
	if err != nil {
		Internal(c, "failed to list printers")
		return
	}
	items := make([]printerResponse, 0, len(printers))
	for i := range printers {
		items = append(items, toPrinterResponse(&printers[i]))
	}
	c.JSON(http.StatusOK, items)
}

// PUT /v1/printers/:id
func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	var req printerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model := &database.Printer{Name: req.Name, IP: req.IP, Port: req.Port}
	model.ID = id

	switch err := h.printers.Update(c.Request.Context(), model); {
	case err == nil:
		c.JSON(http.StatusOK, toPrinterResponse(model))
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "printer not found")
	default:
		Internal(c, "failed to update printer")
	}
}

// DELETE /v1/printers/:id
func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}
	switch err := h.printers.Delete(c.Request.Context(), id); {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "printer not found")
	default:
		Internal(c, "failed to delete printer")
	}
}

// GET /v1/printers/:id/status
// Best-effort TCP reachability check; advisory only, dispatch never consults it.
func (h *PrinterHandler) PrinterStatus(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	printer, err := h.printers.GetByID(c.Request.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "printer not found")
		return
	case err != nil:
		Internal(c, "failed to query printer")
		return
	}

	online := printing.Probe(printer.IP, printer.Port, h.probeTimeout)
	c.JSON(http.StatusOK, gin.H{"online": online})
}

func toPrinterResponse(p *database.Printer) printerResponse {
	return printerResponse{ID: p.ID, Name: p.Name, IP: p.IP, Port: p.Port}
}

func printerID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid printer id")
		return 0, false
	}
	return uint(id), true
}

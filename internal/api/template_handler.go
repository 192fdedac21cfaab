package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"etiqueta/internal/database"
	"etiqueta/internal/printing"
	"etiqueta/internal/store"
	"etiqueta/internal/zpl"
)

// TemplateHandler serves label template CRUD plus the print/test-print actions.
type TemplateHandler struct {
	templates  *store.TemplateStore
	submission *printing.SubmissionService
}

func NewTemplateHandler(templates *store.TemplateStore, submission *printing.SubmissionService) *TemplateHandler {
	return &TemplateHandler{templates: templates, submission: submission}
}

type templateRequest struct {
	Name   string          `json:"name" binding:"required"`
	Width  int             `json:"width" binding:"required,gt=0"`
	Height int             `json:"height" binding:"required,gt=0"`
	Fields json.RawMessage `json:"fields"`
	// RawZPL, when present, is a hand-edited command that must be stored
	// verbatim instead of the compiler output. It may diverge from Fields.
	RawZPL *string `json:"raw_zpl"`
}

type templateResponse struct {
	ID     uint                `json:"id"`
	Name   string              `json:"name"`
	Width  int                 `json:"width"`
	Height int                 `json:"height"`
	Fields []zpl.FieldPosition `json:"fields"`
	RawZPL string              `json:"raw_zpl"`
	// Placeholders is what the command still expects at print time; the
	// editor builds its value form from this list.
	Placeholders []string `json:"placeholders"`
}

// POST /v1/templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, ok := h.buildModel(c, req)
	if !ok {
		return
	}

	if err := h.templates.Create(c.Request.Context(), model); err != nil {
		Internal(c, "failed to create template")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":   model.ID,
		"name": model.Name,
	})
}

// GET /v1/templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		Internal(c, "failed to list templates")
		return
	}

	items := make([]templateResponse, 0, len(templates))
	for i := range templates {
		item, ok := h.toResponse(c, &templates[i])
		if !ok {
			return
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, ok := h.loadTemplate(c)
	if !ok {
		return
	}
	resp, ok := h.toResponse(c, tpl)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PUT /v1/templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	model, ok := h.buildModel(c, req)
	if !ok {
		return
	}
	model.ID = id

	switch err := h.templates.Update(c.Request.Context(), model); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"id": model.ID})
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "template not found")
	default:
		Internal(c, "failed to update template")
	}
}

// DELETE /v1/templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	switch err := h.templates.Delete(c.Request.Context(), id); {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "template not found")
	default:
		Internal(c, "failed to delete template")
	}
}

type printRequest struct {
	Values    map[string]string `json:"values"`
	Quantity  int               `json:"quantity"`
	PrinterID *uint             `json:"printer_id"`
}

// POST /v1/templates/:id/print
// Substitutes the runtime values into the template's command and enqueues a
// pending job. Enqueue is fire-and-forget relative to dispatch.
func (h *TemplateHandler) PrintTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	job, err := h.submission.Submit(c.Request.Context(), printing.SubmitRequest{
		TemplateID: id,
		Values:     req.Values,
		Quantity:   req.Quantity,
		PrinterID:  req.PrinterID,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"job_id": job.ID, "status": job.Status})
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "template not found")
	default:
		Internal(c, "failed to enqueue print job")
	}
}

type testPrintRequest struct {
	RawZPL    string            `json:"raw_zpl" binding:"required"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Values    map[string]string `json:"values"`
	Quantity  int               `json:"quantity"`
	PrinterID *uint             `json:"printer_id"`
}

// POST /v1/templates/test-print
// The editor's "test print before saving" path: the caller supplies the raw
// command directly, no template row is involved.
func (h *TemplateHandler) TestPrint(c *gin.Context) {
	var req testPrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	job, err := h.submission.Submit(c.Request.Context(), printing.SubmitRequest{
		RawZPL:      req.RawZPL,
		Values:      req.Values,
		Quantity:    req.Quantity,
		PrinterID:   req.PrinterID,
		TestPrint:   true,
		LabelWidth:  req.Width,
		LabelHeight: req.Height,
	})
	if err != nil {
		Internal(c, "failed to enqueue test print")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job_id": job.ID, "status": job.Status})
}

// buildModel decodes and normalizes the field list, regenerating the cached
// ZPL unless the caller hand-edited it.
func (h *TemplateHandler) buildModel(c *gin.Context, req templateRequest) (*database.Template, bool) {
	fields, err := zpl.DecodeFields(req.Fields)
	if err != nil {
		BadRequest(c, "invalid field definitions")
		return nil, false
	}

	encoded, err := zpl.EncodeFields(fields)
	if err != nil {
		Internal(c, "failed to encode fields")
		return nil, false
	}

	rawZPL := ""
	if req.RawZPL != nil && *req.RawZPL != "" {
		rawZPL = *req.RawZPL
	} else {
		rawZPL = zpl.Compile(zpl.Template{Width: req.Width, Height: req.Height, Fields: fields}, nil)
	}

	return &database.Template{
		Name:   req.Name,
		Width:  req.Width,
		Height: req.Height,
		Fields: datatypes.JSON(encoded),
		RawZPL: rawZPL,
	}, true
}

func (h *TemplateHandler) loadTemplate(c *gin.Context) (*database.Template, bool) {
	id, ok := templateID(c)
	if !ok {
		return nil, false
	}
	tpl, err := h.templates.GetByID(c.Request.Context(), id)
	switch {
	case err == nil:
		return tpl, true
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, "template not found")
	default:
		Internal(c, "failed to query template")
	}
	return nil, false
}

func (h *TemplateHandler) toResponse(c *gin.Context, tpl *database.Template) (templateResponse, bool) {
	fields, err := zpl.DecodeFields(tpl.Fields)
	if err != nil {
		Internal(c, "failed to decode template fields")
		return templateResponse{}, false
	}
	return templateResponse{
		ID:           tpl.ID,
		Name:         tpl.Name,
		Width:        tpl.Width,
		Height:       tpl.Height,
		Fields:       fields,
		RawZPL:       tpl.RawZPL,
		Placeholders: zpl.Placeholders(tpl.RawZPL),
	}, true
}

func templateID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid template id")
		return 0, false
	}
	return uint(id), true
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/domain/quote/dpgf"
)

const templateFilename = "modele_dpgf.xlsx"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler serves DPGF uploads.
type ImportHandler struct {
	*BaseHandler
	service *dpgf.Service
}

// NewImportHandler creates a new import handler.
func NewImportHandler(base *BaseHandler, service *dpgf.Service) *ImportHandler {
	return &ImportHandler{BaseHandler: base, service: service}
}

// Import handles POST /quotes/:id/import (multipart "file", optional
// "mapping" JSON field).
func (h *ImportHandler) Import(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, apperror.NewImportFormat(fmt.Sprintf("Fichier trop volumineux (maximum %d octets)", h.service.MaxFileSize())))
			return
		}
		h.Error(c, apperror.NewValidation("Fichier DPGF manquant (champ file)").WithDetail("field", "file"))
		return
	}

	var mapping *dpgf.ColumnMapping
	if raw := c.PostForm("mapping"); raw != "" {
		m := dpgf.DefaultMapping()
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			h.Error(c, apperror.NewValidation("Mapping de colonnes invalide (JSON attendu)").WithDetail("field", "mapping"))
			return
		}
		mapping = &m
	}

	f, err := header.Open()
	if err != nil {
		h.Error(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	// One byte past the limit is enough for the service to reject the file.
	data, err := io.ReadAll(io.LimitReader(f, h.service.MaxFileSize()+1))
	if err != nil {
		h.Error(c, fmt.Errorf("read upload: %w", err))
		return
	}

	result, err := h.service.Import(c.Request.Context(), quoteID, filepath.Base(header.Filename), data, mapping)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result.ToMap())
}

// Template handles GET /dpgf/template.
func (h *ImportHandler) Template(c *gin.Context) {
	data, err := dpgf.GenerateTemplate()
	if err != nil {
		h.Error(c, fmt.Errorf("generate template: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", templateFilename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// LimitBody caps multipart uploads slightly above the import limit so the
// service can answer with a proper error.
func (h *ImportHandler) LimitBody() gin.HandlerFunc {
	limit := h.service.MaxFileSize() + 1<<20
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

package upload

import (
	"fmt"
	"log"
	"mime/multipart"

	"github.com/futureguard/api/services"
	"github.com/futureguard/api/utils/middleware"
	"github.com/futureguard/api/utils/response"
	"github.com/futureguard/api/utils/spreadsheet"
	"github.com/gofiber/fiber/v2"
)

// maxUploadFiles caps one batch; larger rosters go in separate requests.
const maxUploadFiles = 10

// UploadHandler receives roster spreadsheets from mentors and runs them
// through the ingestion pipeline.
type UploadHandler struct {
	uploads *services.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload handles a multipart batch of roster files under the "files" field.
// Per-file pipeline failures come back inside the per-file summaries; the
// request only fails as a whole on infrastructure errors.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	mentor := middleware.CurrentUser(c)
	if mentor == nil {
		return response.Unauthorized(c, "Authentication required")
	}
	if mentor.InstituteID == nil {
		return response.Forbidden(c, "Account is not attached to an institute")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "Expected a multipart upload")
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		return response.BadRequest(c, "No files uploaded, use the \"files\" field")
	}
	if len(fileHeaders) > maxUploadFiles {
		return response.BadRequest(c, fmt.Sprintf("Too many files, at most %d per upload", maxUploadFiles))
	}

	files := make([]services.ParsedFile, 0, len(fileHeaders))
	summaries := make([]services.FileSummary, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		parsed, perr := h.parseOne(fh.Filename, fh)
		if perr != nil {
			// Unsupported format or unreadable content: report on the
			// file's summary, keep going with the rest of the batch.
			pe, ok := services.AsPipelineError(perr)
			if !ok {
				return response.InternalServerError(c, "Failed to read uploaded file")
			}
			summaries = append(summaries, services.FileSummary{
				FileName: fh.Filename,
				Skipped:  true,
				Error: &services.FileError{
					Code:    string(pe.Kind),
					Message: pe.Message,
					Fields:  pe.Fields,
				},
			})
			continue
		}
		files = append(files, parsed)
	}

	if len(files) > 0 {
		processed, err := h.uploads.ProcessUpload(c.Context(), mentor, files)
		if err != nil {
			log.Printf("[UPLOAD] batch from mentor %d failed: %v", mentor.ID, err)
			return response.InternalServerError(c, "Failed to process upload")
		}
		summaries = append(summaries, processed...)
	}

	return response.Success(c, fiber.Map{"files": summaries})
}

// parseOne opens and parses a single multipart file.
func (h *UploadHandler) parseOne(name string, fh *multipart.FileHeader) (services.ParsedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return services.ParsedFile{}, err
	}
	defer f.Close()

	rows, err := spreadsheet.Parse(name, f)
	if err != nil {
		return services.ParsedFile{}, err
	}
	return services.ParsedFile{Name: name, Rows: rows}, nil
}

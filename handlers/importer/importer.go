package importer

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/NikFin25/deanery-bot/services"
	"github.com/NikFin25/deanery-bot/utils/response"
	"github.com/NikFin25/deanery-bot/utils/validation"
)

// ImportHandler accepts bulk timetable and semester uploads from the
// deanery's export job.
type ImportHandler struct {
	imports   *services.ImportService
	validator *validation.Validator
}

// NewImportHandler creates a new import handler
func NewImportHandler(db *gorm.DB) *ImportHandler {
	return &ImportHandler{
		imports:   services.NewImportService(db),
		validator: validation.NewValidator(),
	}
}

// ImportScheduleRequest represents the request body for a timetable upload
type ImportScheduleRequest struct {
	Group string                 `json:"group" validate:"required,min=2,max=50"`
	Rows  []services.ScheduleRow `json:"rows" validate:"required,min=1,max=500,dive"`
}

// ImportSemestersRequest represents the request body for a semester upload
type ImportSemestersRequest struct {
	Group string                 `json:"group" validate:"required,min=2,max=50"`
	Rows  []services.SemesterRow `json:"rows" validate:"required,min=1,max=20,dive"`
}

// ImportSchedule handles POST /api/v1/import/schedule
func (h *ImportHandler) ImportSchedule(c *fiber.Ctx) error {
	var req ImportScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	result, err := h.imports.ImportSchedule(c.Context(), req.Group, req.Rows)
	if err != nil {
		log.Printf("Import schedule for group %q failed: %v", req.Group, err)
		return response.InternalServerError(c, "Failed to import schedule")
	}

	return response.Created(c, result)
}

// ImportSemesters handles POST /api/v1/import/semesters
func (h *ImportHandler) ImportSemesters(c *fiber.Ctx) error {
	var req ImportSemestersRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	result, err := h.imports.ImportSemesters(c.Context(), req.Group, req.Rows)
	if err != nil {
		log.Printf("Import semesters for group %q failed: %v", req.Group, err)
		return response.InternalServerError(c, "Failed to import semesters")
	}

	return response.Created(c, result)
}

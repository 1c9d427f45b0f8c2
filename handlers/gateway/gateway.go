package gateway

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/NikFin25/deanery-bot/bot"
	"github.com/NikFin25/deanery-bot/utils/response"
	"github.com/NikFin25/deanery-bot/utils/validation"
)

// GatewayHandler exposes the update dispatcher over HTTP. The chat transport
// process forwards each incoming update here and sends back the replies it
// gets, so transport credentials never reach this service.
type GatewayHandler struct {
	dispatcher *bot.Dispatcher
	validator  *validation.Validator
}

// NewGatewayHandler creates a new gateway handler
func NewGatewayHandler(dispatcher *bot.Dispatcher) *GatewayHandler {
	return &GatewayHandler{
		dispatcher: dispatcher,
		validator:  validation.NewValidator(),
	}
}

// UpdateRequest represents one forwarded chat update
type UpdateRequest struct {
	UserID int64  `json:"user_id" validate:"required"`
	ChatID int64  `json:"chat_id"`
	Kind   string `json:"kind" validate:"required,oneof=start text select"`
	Text   string `json:"text"`
	Data   string `json:"data"`
}

var updateKinds = map[string]bot.UpdateKind{
	"start":  bot.KindStart,
	"text":   bot.KindText,
	"select": bot.KindSelect,
}

// HandleUpdate handles POST /api/v1/gateway/updates
func (h *GatewayHandler) HandleUpdate(c *fiber.Ctx) error {
	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	update := bot.Update{
		UserID: req.UserID,
		ChatID: req.ChatID,
		Kind:   updateKinds[req.Kind],
		Text:   req.Text,
		Data:   req.Data,
	}

	replies, err := h.dispatcher.Handle(c.Context(), update)
	if err != nil {
		log.Printf("Gateway: dispatch update for user %d failed: %v", req.UserID, err)
		return response.InternalServerError(c, "Failed to process update")
	}

	return response.Success(c, fiber.Map{"replies": replies})
}

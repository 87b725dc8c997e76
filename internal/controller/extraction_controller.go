package controller

import (
	"voicetask/internal/dto"
	"voicetask/internal/pkg/serverutils"
	"voicetask/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IExtractionController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Extract(ctx *fiber.Ctx) error
}

type extractionController struct {
	pipelineService service.IPipelineService
}

func NewExtractionController(pipelineService service.IPipelineService) IExtractionController {
	return &extractionController{
		pipelineService: pipelineService,
	}
}

func (c *extractionController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/extraction/v1")
	h.Use(auth)
	h.Post("", c.Extract)
}

// Extract runs the typed-text pipeline. Typed input does not go through the
// utterance gate: every request is one run.
func (c *extractionController) Extract(ctx *fiber.Ctx) error {
	var req dto.ExtractTasksRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.pipelineService.Run(ctx.UserContext(), req.Text, service.SourceTyped)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}

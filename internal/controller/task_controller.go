package controller

import (
	"voicetask/internal/dto"
	"voicetask/internal/pkg/serverutils"
	"voicetask/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITaskController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Toggle(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	DeleteCompleted(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type taskController struct {
	taskService service.ITaskService
}

func NewTaskController(taskService service.ITaskService) ITaskController {
	return &taskController{
		taskService: taskService,
	}
}

func (c *taskController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/task/v1")
	h.Use(auth)
	h.Get("", c.List)
	h.Post("", c.Create)
	h.Get("stats", c.Stats)
	h.Delete("completed", c.DeleteCompleted)
	h.Patch(":id/toggle", c.Toggle)
	h.Delete(":id", c.Delete)
}

// List returns tasks in stored order, or pending-first newest-first with ?sorted=true.
func (c *taskController) List(ctx *fiber.Ctx) error {
	res, err := c.taskService.List(ctx.UserContext(), ctx.QueryBool("sorted", false))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list tasks", res))
}

func (c *taskController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateTaskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.taskService.Add(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create task", res))
}

func (c *taskController) Toggle(ctx *fiber.Ctx) error {
	res, err := c.taskService.Toggle(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success toggle task", res))
}

func (c *taskController) Delete(ctx *fiber.Ctx) error {
	if err := c.taskService.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete task", nil))
}

func (c *taskController) DeleteCompleted(ctx *fiber.Ctx) error {
	res, err := c.taskService.DeleteCompleted(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete completed tasks", res))
}

func (c *taskController) Stats(ctx *fiber.Ctx) error {
	res, err := c.taskService.Stats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success task stats", res))
}

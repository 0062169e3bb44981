package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/ports"
	"github.com/melih/dokken/internal/core/transport"
)

// TransportHandler exposes connection operations for instances whose state
// lives in a state store.
type TransportHandler struct {
	manager *transport.Manager
	states  ports.StateStore
}

func NewTransportHandler(manager *transport.Manager, states ports.StateStore) *TransportHandler {
	return &TransportHandler{manager: manager, states: states}
}

// Register mounts the handler's routes on app.
func (h *TransportHandler) Register(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := app.Group("/api")
	v1 := api.Group("/v1")

	instances := v1.Group("/instances")
	instances.Post("/:name/exec", h.Execute)
	instances.Post("/:name/upload", h.Upload)
	instances.Get("/:name/login", h.Login)
}

type ExecuteRequest struct {
	Command string `json:"command"`
}

func (h *TransportHandler) Execute(c *fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	state, err := h.states.Load(c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}

	var workImage string
	_, err = h.manager.Connection(state, func(conn *transport.Connection) error {
		workImage = conn.WorkImage()
		return conn.Execute(c.UserContext(), req.Command)
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"instance":   state.InstanceName,
		"work_image": workImage + ":latest",
	})
}

type UploadRequest struct {
	Locals []string `json:"locals"`
	Remote string   `json:"remote"`
}

func (h *TransportHandler) Upload(c *fiber.Ctx) error {
	var req UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(req.Locals) == 0 || req.Remote == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "locals and remote are required",
		})
	}

	state, err := h.states.Load(c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}

	_, err = h.manager.Connection(state, func(conn *transport.Connection) error {
		return conn.Upload(c.UserContext(), req.Locals, req.Remote)
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TransportHandler) Login(c *fiber.Ctx) error {
	state, err := h.states.Load(c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}

	conn, err := h.manager.Connection(state, nil)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(conn.LoginCommand())
}

func errorResponse(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error()}

	var execErr *domain.ExecFailedError
	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &execErr):
		status = fiber.StatusUnprocessableEntity
		body["exit_code"] = execErr.ExitCode
	case errors.Is(err, domain.ErrConfiguration):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrTransfer):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(body)
}

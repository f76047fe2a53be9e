package controller

import (
	"bytes"
	"context"
	"io"

	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/pkg/serverutils"
	"ms-annotation-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IJobController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	CreateFromUpload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Clone(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	UpdateState(ctx *fiber.Ctx) error
	Submit(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Stdout(ctx *fiber.Ctx) error
	Stderr(ctx *fiber.Ctx) error
}

type jobController struct {
	jobService service.IJobService
}

func NewJobController(jobService service.IJobService) IJobController {
	return &jobController{
		jobService: jobService,
	}
}

func (c *jobController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/job/v1")
	h.Post("", c.Create)
	h.Post("upload", c.CreateFromUpload)
	h.Get("", c.List)
	h.Post(":id/clone", c.Clone)
	h.Post(":id/submit", c.Submit)
	h.Post(":id/cancel", c.Cancel)
	h.Put(":id/state", c.UpdateState)
	h.Put(":id", c.Update)
	h.Get(":id/stdout", c.Stdout)
	h.Get(":id/stderr", c.Stderr)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
}

func owner(ctx *fiber.Ctx) string {
	// authn is handled upstream; the gateway forwards the user id
	if user := ctx.Get("X-User"); user != "" {
		return user
	}
	return "anonymous"
}

func jobID(ctx *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(ctx.Params("id"))
}

func (c *jobController) Create(ctx *fiber.Ctx) error {
	res, err := c.jobService.Create(ctx.Context(), owner(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create job", res))
}

func (c *jobController) CreateFromUpload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("db")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing db file")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	res, err := c.jobService.CreateFromUpload(ctx.Context(), owner(ctx), src)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create job from upload", res))
}

// List returns the caller's workspace; ?public=true switches to the publicly
// shared jobs, ?state narrows to one state, start/limit page the result.
func (c *jobController) List(ctx *fiber.Ctx) error {
	q := &dto.ListJobsQuery{
		Owner:  owner(ctx),
		Public: ctx.QueryBool("public"),
		State:  ctx.Query("state"),
		Start:  ctx.QueryInt("start", 0),
		Limit:  ctx.QueryInt("limit", 0),
	}
	res, err := c.jobService.List(ctx.Context(), q)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list jobs", res))
}

func (c *jobController) Clone(ctx *fiber.Ctx) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	res, err := c.jobService.Clone(ctx.Context(), id, owner(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success clone job", res))
}

func (c *jobController) Show(ctx *fiber.Ctx) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	res, err := c.jobService.Show(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get job", res))
}

func (c *jobController) Update(ctx *fiber.Ctx) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	var req dto.UpdateJobRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := c.jobService.Update(ctx.Context(), id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update job", nil))
}

// UpdateState is the execution daemon's status callback. The body is the
// bare state string.
func (c *jobController) UpdateState(ctx *fiber.Ctx) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	state := string(bytes.TrimSpace(ctx.Body()))
	if state == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing state")
	}
	if err := c.jobService.UpdateState(ctx.Context(), id, state); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update state", nil))
}

func (c *jobController) Submit(ctx *fiber.Ctx) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	var req dto.SubmitJobRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Script == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing script")
	}
	if err := c.jobService.Submit(ctx.Context(), id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success submit job", nil))
}

func (c *jobController) Cancel(ctx *fiber.Ctx) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	if err := c.jobService.Cancel(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success cancel job", nil))
}

func (c *jobController) Delete(ctx *fiber.Ctx) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	if err := c.jobService.Delete(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete job", nil))
}

func (c *jobController) Stdout(ctx *fiber.Ctx) error {
	return c.stream(ctx, c.jobService.Stdout)
}

func (c *jobController) Stderr(ctx *fiber.Ctx) error {
	return c.stream(ctx, c.jobService.Stderr)
}

func (c *jobController) stream(ctx *fiber.Ctx, open func(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)) error {
	id, err := jobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	r, err := open(ctx.Context(), id)
	if err != nil {
		return err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	ctx.Set("Content-Type", "text/plain")
	return ctx.Send(data)
}

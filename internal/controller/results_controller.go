package controller

import (
	"strconv"
	"strings"

	"ms-annotation-be/internal/dto"
	"ms-annotation-be/internal/pkg/serverutils"
	"ms-annotation-be/internal/repository/specification"
	"ms-annotation-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IResultsController interface {
	RegisterRoutes(r fiber.Router)
	Info(ctx *fiber.Ctx) error
	Molecules(ctx *fiber.Ctx) error
	MoleculesCSV(ctx *fiber.Ctx) error
	MoleculesSDF(ctx *fiber.Ctx) error
	Chromatogram(ctx *fiber.Ctx) error
	ExtractedIonChromatogram(ctx *fiber.Ctx) error
	Scans(ctx *fiber.Ctx) error
	MSpectra(ctx *fiber.Ctx) error
	FragmentRoot(ctx *fiber.Ctx) error
	FragmentChildren(ctx *fiber.Ctx) error
	AssignPeak(ctx *fiber.Ctx) error
	UnassignPeak(ctx *fiber.Ctx) error
}

type resultsController struct {
	resultsService service.IResultsService
}

func NewResultsController(resultsService service.IResultsService) IResultsController {
	return &resultsController{
		resultsService: resultsService,
	}
}

func (c *resultsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/results/v1/:jobid")
	h.Get("info", c.Info)
	h.Get("molecules.csv", c.MoleculesCSV)
	h.Get("molecules.sdf", c.MoleculesSDF)
	h.Get("molecules", c.Molecules)
	h.Get("chromatogram", c.Chromatogram)
	h.Get("eic/:molid", c.ExtractedIonChromatogram)
	h.Get("scans", c.Scans)
	h.Get("mspectra/:scanid", c.MSpectra)
	h.Get("fragments/:scanid/:molid", c.FragmentRoot)
	h.Get("fragments/:fragid", c.FragmentChildren)
	h.Post("assign", c.AssignPeak)
	h.Post("unassign", c.UnassignPeak)
}

func resultsJobID(ctx *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(ctx.Params("jobid"))
}

func queryInt64(ctx *fiber.Ctx, name string) (*int64, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return &v, nil
}

func queryFloat64(ctx *fiber.Ctx, name string) (*float64, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return &v, nil
}

func gridQuery(ctx *fiber.Ctx) ([]specification.GridFilter, []specification.GridSort, error) {
	filters, err := specification.ParseGridFilters(ctx.Query("filter"))
	if err != nil {
		return nil, nil, err
	}
	sorts, err := specification.ParseGridSorts(ctx.Query("sort"))
	if err != nil {
		return nil, nil, err
	}
	return filters, sorts, nil
}

func moleculesParams(ctx *fiber.Ctx) (service.MoleculesParams, error) {
	var p service.MoleculesParams
	filters, sorts, err := gridQuery(ctx)
	if err != nil {
		return p, err
	}
	p.Filters = filters
	p.Sorts = sorts
	p.Start = int64(ctx.QueryInt("start", 0))
	p.Limit = int64(ctx.QueryInt("limit", 10))
	if p.ScanID, err = queryInt64(ctx, "scanid"); err != nil {
		return p, err
	}
	if p.Mz, err = queryFloat64(ctx, "mz"); err != nil {
		return p, err
	}
	if p.MolID, err = queryInt64(ctx, "molid"); err != nil {
		return p, err
	}
	return p, nil
}

func exportCols(ctx *fiber.Ctx) []string {
	raw := ctx.Query("cols")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (c *resultsController) Info(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	res, err := c.resultsService.Info(ctx.Context(), jobID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get results info", res))
}

func (c *resultsController) Molecules(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	params, err := moleculesParams(ctx)
	if err != nil {
		return err
	}
	res, err := c.resultsService.Molecules(ctx.Context(), jobID, params)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get molecules", res))
}

func (c *resultsController) MoleculesCSV(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	params, err := moleculesParams(ctx)
	if err != nil {
		return err
	}
	body, err := c.resultsService.MoleculesCSV(ctx.Context(), jobID, params, exportCols(ctx))
	if err != nil {
		return err
	}
	ctx.Set("Content-Type", "text/csv")
	ctx.Set("Content-Disposition", `attachment; filename="molecules.csv"`)
	return ctx.SendString(body)
}

func (c *resultsController) MoleculesSDF(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	params, err := moleculesParams(ctx)
	if err != nil {
		return err
	}
	body, err := c.resultsService.MoleculesSDF(ctx.Context(), jobID, params, exportCols(ctx))
	if err != nil {
		return err
	}
	ctx.Set("Content-Type", "chemical/x-mdl-sdfile")
	ctx.Set("Content-Disposition", `attachment; filename="molecules.sdf"`)
	return ctx.SendString(body)
}

func (c *resultsController) Chromatogram(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	res, err := c.resultsService.Chromatogram(ctx.Context(), jobID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chromatogram", res))
}

func (c *resultsController) ExtractedIonChromatogram(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	molID, err := ctx.ParamsInt("molid")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid molid")
	}
	res, err := c.resultsService.ExtractedIonChromatogram(ctx.Context(), jobID, int64(molID))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get extracted ion chromatogram", res))
}

func (c *resultsController) Scans(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	filters, _, err := gridQuery(ctx)
	if err != nil {
		return err
	}
	molID, err := queryInt64(ctx, "molid")
	if err != nil {
		return err
	}
	mz, err := queryFloat64(ctx, "mz")
	if err != nil {
		return err
	}
	scanID, err := queryInt64(ctx, "scanid")
	if err != nil {
		return err
	}
	res, err := c.resultsService.ScansWithMolecules(ctx.Context(), jobID, filters, molID, mz, scanID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get scans", res))
}

func (c *resultsController) MSpectra(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	scanID, err := ctx.ParamsInt("scanid")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid scanid")
	}
	var msLevel *int
	if raw := ctx.Query("mslevel"); raw != "" {
		lvl, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid mslevel")
		}
		msLevel = &lvl
	}
	res, err := c.resultsService.MSpectra(ctx.Context(), jobID, int64(scanID), msLevel)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get spectrum", res))
}

func (c *resultsController) FragmentRoot(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	scanID, err := ctx.ParamsInt("scanid")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid scanid")
	}
	molID, err := ctx.ParamsInt("molid")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid molid")
	}
	res, err := c.resultsService.FragmentRoot(ctx.Context(), jobID, int64(scanID), int64(molID))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get fragments", res))
}

func (c *resultsController) FragmentChildren(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	fragID, err := ctx.ParamsInt("fragid")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid fragid")
	}
	res, err := c.resultsService.FragmentChildren(ctx.Context(), jobID, int64(fragID))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get fragment children", res))
}

func (c *resultsController) AssignPeak(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	var req dto.AssignPeakRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := c.resultsService.AssignPeak(ctx.Context(), jobID, req.ScanID, req.Mz, req.MolID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success assign peak", nil))
}

func (c *resultsController) UnassignPeak(ctx *fiber.Ctx) error {
	jobID, err := resultsJobID(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	var req dto.UnassignPeakRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := c.resultsService.UnassignPeak(ctx.Context(), jobID, req.ScanID, req.Mz); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success unassign peak", nil))
}

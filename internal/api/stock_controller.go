package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
)

// StockController 库存与发放历史控制器
type StockController struct {
	stockService service.StockService
}

// NewStockController 创建库存控制器
func NewStockController(stockService service.StockService) *StockController {
	return &StockController{
		stockService: stockService,
	}
}

// Upsert 创建或盘点库存物项
func (c *StockController) Upsert(ctx *gin.Context) {
	var input service.UpsertStockItemInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	item, err := c.stockService.Upsert(ctx.Request.Context(), &input)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, item)
}

// Get 查询库存物项
func (c *StockController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	item, err := c.stockService.Get(id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, item)
}

// List 列出全部库存物项
func (c *StockController) List(ctx *gin.Context) {
	items, err := c.stockService.List()
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, items)
}

// EmployeeHistory 员工的 PPE 发放历史
func (c *StockController) EmployeeHistory(ctx *gin.Context) {
	employeeID := ctx.Param("id")
	if !validateID(ctx, employeeID) {
		return
	}

	records, err := c.stockService.EmployeeHistory(employeeID)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, records)
}

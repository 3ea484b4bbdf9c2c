package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
)

// QueryController 查询控制器
type QueryController struct {
	queryService service.QueryService
}

// NewQueryController 创建查询控制器
func NewQueryController(queryService service.QueryService) *QueryController {
	return &QueryController{
		queryService: queryService,
	}
}

// ListEntities 分页列出工作流实体,支持多条件查询与排序
func (c *QueryController) ListEntities(ctx *gin.Context) {
	filter := &service.ListEntitiesFilter{
		SortBy: ctx.Query("sort_by"),
		Order:  ctx.Query("order"),
	}

	if kind := ctx.Query("kind"); kind != "" {
		if err := service.ValidateFilterKind(kind); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid kind", err.Error())
			return
		}
		filter.Kind = &kind
	}
	if status := ctx.Query("status"); status != "" {
		filter.Status = &status
	}
	if requester := ctx.Query("requester_id"); requester != "" {
		filter.RequesterID = &requester
	}
	if approver := ctx.Query("approver_id"); approver != "" {
		filter.ApproverID = &approver
	}
	if startTime := ctx.Query("start_time"); startTime != "" {
		filter.StartTime = &startTime
	}
	if endTime := ctx.Query("end_time"); endTime != "" {
		filter.EndTime = &endTime
	}

	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	entities, total, err := c.queryService.ListEntities(filter)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	totalPage := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPage++
	}

	Paginated(ctx, entities, PaginationInfo{
		Page:      filter.Page,
		PageSize:  filter.PageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetHistory 获取实体的状态历史
func (c *QueryController) GetHistory(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	histories, err := c.queryService.GetHistory(id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, histories)
}

// Inbox 当前用户未读的参与实体
func (c *QueryController) Inbox(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		Error(ctx, http.StatusUnauthorized, "missing user identity", "")
		return
	}

	entities, err := c.queryService.Inbox(userID)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entities)
}

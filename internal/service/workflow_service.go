package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/siteops/opsflow-gin/internal/metrics"
	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/store"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"gorm.io/gorm"
)

// actorKey context 中的 Actor 键
type actorKey struct{}

// ContextWithActor 将 Actor 写入 context (认证中间件使用)
func ContextWithActor(ctx context.Context, actor *workflow.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext 从 context 取出 Actor
func ActorFromContext(ctx context.Context) *workflow.Actor {
	if actor, ok := ctx.Value(actorKey{}).(*workflow.Actor); ok {
		return actor
	}
	return nil
}

// getUserIDFromContext 从 context 获取用户 ID
func getUserIDFromContext(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != nil {
		return actor.ID
	}
	return ""
}

// CreateEntityRequest 创建工作流实体请求
type CreateEntityRequest struct {
	Kind       workflow.VariantKind `json:"kind"`
	ApproverID string               `json:"approver_id"`
	Assignees  []string             `json:"assignees"` // 仅任务变体
	Payload    json.RawMessage      `json:"payload"`   // 变体载荷,引擎不解释
}

// WorkflowService 工作流服务
// 统一的动作管线: 加载实体 → 引擎 Apply → 同事务提交 (实体 CAS + 历史 + 出箱 + 副作用)
// → 发布变更 → 审计
type WorkflowService interface {
	Create(ctx context.Context, req *CreateEntityRequest) (*workflow.Entity, error)
	Get(id string) (*workflow.Entity, error)
	Apply(ctx context.Context, id string, act workflow.Action) (*workflow.Entity, error)
	MarkViewed(ctx context.Context, id string) error
	// Purge 管理员物理删除,级联移除评论/历史/出箱记录
	Purge(ctx context.Context, id string) error
}

// workflowService 工作流服务实现
type workflowService struct {
	db          *gorm.DB
	engine      *workflow.Engine
	bus         *store.Bus
	auditLogSvc AuditLogService
}

// NewWorkflowService 创建工作流服务
func NewWorkflowService(db *gorm.DB, engine *workflow.Engine, bus *store.Bus, auditLogSvc AuditLogService) WorkflowService {
	return &workflowService{
		db:          db,
		engine:      engine,
		bus:         bus,
		auditLogSvc: auditLogSvc,
	}
}

// Create 创建实体: 请求人即当前 Actor,初始状态由变体决定
func (s *workflowService) Create(ctx context.Context, req *CreateEntityRequest) (*workflow.Entity, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, fmt.Errorf("%w: missing actor", workflow.ErrUnauthorized)
	}

	e, err := s.engine.NewEntity(req.Kind, actor.ID)
	if err != nil {
		return nil, err
	}
	e.ID = uuid.New().String()
	e.ApproverID = req.ApproverID
	e.Payload = req.Payload
	for _, assignee := range req.Assignees {
		e.Subtasks = append(e.Subtasks, workflow.Subtask{
			AssigneeID: assignee,
			Status:     workflow.TaskToDo,
		})
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewEntityRepository(tx).Create(e, now); err != nil {
			return err
		}
		return repository.NewStateHistoryRepository(tx).Save(&model.StateHistoryModel{
			ID:        uuid.New().String(),
			EntityID:  e.ID,
			ToState:   string(e.Status),
			Reason:    "created",
			Operator:  actor.ID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntityCreated(string(req.Kind))
	s.publish(e, actor.ID, now)
	s.audit(ctx, actor.ID, "create", e)

	return e, nil
}

// Get 获取实体详情
func (s *workflowService) Get(id string) (*workflow.Entity, error) {
	return repository.NewEntityRepository(s.db).FindByID(id)
}

// Apply 对实体应用动作
// 引擎失败时实体保持不变;提交采用乐观并发,竞争失败返回 ErrConcurrentConflict
func (s *workflowService) Apply(ctx context.Context, id string, act workflow.Action) (*workflow.Entity, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, fmt.Errorf("%w: missing actor", workflow.ErrUnauthorized)
	}

	now := time.Now()
	if act.Now.IsZero() {
		act.Now = now
	}

	var result *workflow.Entity
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewEntityRepository(tx)

		e, err := repo.FindByID(id)
		if err != nil {
			return err
		}

		out, err := s.engine.Apply(e, act, actor)
		if err != nil {
			return err
		}

		if err := repo.SaveCAS(out.Entity, e.Revision, now); err != nil {
			return err
		}

		if out.Entity.Status != e.Status {
			if err := repository.NewStateHistoryRepository(tx).Save(&model.StateHistoryModel{
				ID:        uuid.New().String(),
				EntityID:  e.ID,
				FromState: string(e.Status),
				ToState:   string(out.Entity.Status),
				Reason:    act.Comment,
				Operator:  actor.ID,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		if err := s.applyEffects(tx, out, actor, now); err != nil {
			return err
		}

		if out.Reopened != nil {
			out.Reopened.ID = uuid.New().String()
			if err := repo.Create(out.Reopened, now); err != nil {
				return err
			}
		}

		result = out.Entity
		return nil
	})
	if err != nil {
		metrics.RecordTransitionError(string(act.Kind))
		return nil, err
	}

	metrics.RecordTransition(string(result.Kind), string(act.Kind))
	s.publish(result, actor.ID, now)
	s.audit(ctx, actor.ID, string(act.Kind), result)

	return result, nil
}

// MarkViewed 标记当前用户已读,幂等
func (s *workflowService) MarkViewed(ctx context.Context, id string) error {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return fmt.Errorf("%w: missing actor", workflow.ErrUnauthorized)
	}
	return repository.NewEntityRepository(s.db).SetViewed(id, actor.ID, time.Now())
}

// Purge 管理员清除实体
func (s *workflowService) Purge(ctx context.Context, id string) error {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return fmt.Errorf("%w: missing actor", workflow.ErrUnauthorized)
	}
	if !actor.Has(workflow.CapPurge) {
		return fmt.Errorf("%w: purge requires %s", workflow.ErrUnauthorized, workflow.CapPurge)
	}

	e, err := repository.NewEntityRepository(s.db).FindByID(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return repository.NewEntityRepository(tx).Delete(id)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, actor.ID, "purge", e)
	return nil
}

// applyEffects 消费引擎事件: 库存扣减与发放历史同事务执行,通知事件写入出箱
func (s *workflowService) applyEffects(tx *gorm.DB, out *workflow.Outcome, actor *workflow.Actor, now time.Time) error {
	stockRepo := repository.NewStockRepository(tx)
	outboxRepo := repository.NewOutboxRepository(tx)

	for _, evt := range out.Events {
		switch evt.Type {
		case workflow.EventStockDecrement:
			qty, _ := strconv.Atoi(evt.Payload["quantity"])
			itemID := evt.Payload["item_id"]
			if itemID != "" && qty > 0 {
				if err := stockRepo.DecrementClamped(itemID, qty); err != nil {
					return err
				}
			}

		case workflow.EventHistoryAppend:
			qty, _ := strconv.Atoi(evt.Payload["quantity"])
			if err := stockRepo.AppendHistory(&model.PpeHistoryModel{
				ID:         uuid.New().String(),
				EmployeeID: out.Entity.RequesterID,
				RequestID:  out.Entity.ID,
				ItemID:     evt.Payload["item_id"],
				Quantity:   qty,
				IssueDate:  now,
				IssuedBy:   actor.ID,
			}); err != nil {
				return err
			}

		default:
			// 通知类事件入箱,由分发器异步消费
			data, err := json.Marshal(evt)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			if err := outboxRepo.Save(&model.OutboxModel{
				ID:        uuid.New().String(),
				EntityID:  out.Entity.ID,
				Type:      string(evt.Type),
				Data:      data,
				Status:    model.OutboxStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// publish 事务提交后发布变更到总线
func (s *workflowService) publish(e *workflow.Entity, actorID string, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(store.Change{
		EntityID:     e.ID,
		Kind:         e.Kind,
		Status:       e.Status,
		Revision:     e.Revision,
		ActorID:      actorID,
		Participants: e.Participants(),
		OccurredAt:   now,
	})
}

// audit 记录审计日志,失败只影响审计不影响主流程
func (s *workflowService) audit(ctx context.Context, userID, action string, e *workflow.Entity) {
	if s.auditLogSvc == nil || userID == "" {
		return
	}
	details := map[string]string{
		"entity_id": e.ID,
		"kind":      string(e.Kind),
		"status":    string(e.Status),
	}
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, resourceType(e.Kind), e.ID, details)
}

// resourceType 审计资源类型
func resourceType(kind workflow.VariantKind) string {
	switch kind {
	case workflow.KindTask:
		return "task"
	case workflow.KindTimesheet:
		return "timesheet"
	default:
		return "request"
	}
}

package workflow

import (
	"fmt"
	"time"
)

// 任务变体的状态集合
const (
	TaskToDo            State = "To Do"
	TaskInProgress      State = "In Progress"
	TaskPendingApproval State = "Pending Approval"
	TaskDone            State = "Done"
)

// taskVariant 任务审批子状态机
// 多执行人任务的整体状态由子任务集合聚合得出,不独立存储
type taskVariant struct{}

// NewTaskVariant 创建任务变体
func NewTaskVariant() Variant {
	return &taskVariant{}
}

func (v *taskVariant) Kind() VariantKind { return KindTask }

func (v *taskVariant) Initial() State { return TaskToDo }

func (v *taskVariant) States() []State {
	return []State{TaskToDo, TaskInProgress, TaskPendingApproval, TaskDone}
}

func (v *taskVariant) Terminal(s State) bool {
	return s == TaskDone
}

func (v *taskVariant) Edges() []Edge {
	return []Edge{
		{
			// 执行人更新自己的子任务状态,整体状态重新聚合
			From:    StateAny,
			Action:  ActionUpdateSubtask,
			Guard:   assigneeOnly,
			Resolve: keepStatus,
			OnApply: v.onUpdateSubtask,
		},
		{
			// 提交审批: 仅当全部子任务完成时才进入 Pending Approval
			From:    StateAny,
			Action:  ActionSubmit,
			Guard:   assigneeOnly,
			Resolve: keepStatus,
			OnApply: v.onSubmit,
		},
		{
			From:         TaskPendingApproval,
			Action:       ActionApprove,
			To:           TaskDone,
			ApproverOnly: true,
			OnApply:      v.onApprove,
		},
		{
			From:           TaskPendingApproval,
			Action:         ActionReturn,
			To:             TaskInProgress,
			ApproverOnly:   true,
			RequireComment: true,
			OnApply:        v.onReturn,
		},
		{
			From:       TaskDone,
			Action:     ActionReopen,
			To:         TaskDone,
			Capability: CapReopen,
			OnApply:    v.onReopen,
		},
	}
}

// AggregateStatus 子任务集合的聚合规则
// 全部 Done 为 Done (AND);任一 In Progress 为 In Progress (OR);否则 To Do
// 每次子任务变更后必须重新计算,整体状态不独立存储
func AggregateStatus(subtasks []Subtask) State {
	if len(subtasks) == 0 {
		return TaskToDo
	}
	allDone := true
	anyInProgress := false
	for _, st := range subtasks {
		if st.Status != TaskDone {
			allDone = false
		}
		if st.Status == TaskInProgress {
			anyInProgress = true
		}
	}
	if allDone {
		return TaskDone
	}
	if anyInProgress {
		return TaskInProgress
	}
	return TaskToDo
}

// assigneeOnly 仅任务执行人可执行
func assigneeOnly(e *Entity, actor *Actor) error {
	for _, st := range e.Subtasks {
		if st.AssigneeID == actor.ID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not an assignee", ErrUnauthorized, actor.ID)
}

// keepStatus 目标状态由 OnApply 聚合后决定,Resolve 先保持原状态
func keepStatus(e *Entity, act Action) (State, error) {
	return e.Status, nil
}

func (v *taskVariant) onUpdateSubtask(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	target := State(act.Payload["status"])
	switch target {
	case TaskToDo, TaskInProgress, TaskDone:
	default:
		return fmt.Errorf("%w: invalid subtask status %q", ErrInvalidTransition, target)
	}
	setSubtask(e, actor.ID, target)
	e.Status = AggregateStatus(e.Subtasks)
	return nil
}

// onSubmit 提交人的子任务记为 Done;仅当聚合结果为 Done 时才发起审批申请,
// 否则整体状态保持聚合值,不产生 Pending Approval 转换
func (v *taskVariant) onSubmit(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	setSubtask(e, actor.ID, TaskDone)
	agg := AggregateStatus(e.Subtasks)
	if agg != TaskDone {
		e.Status = agg
		return nil
	}
	e.Status = TaskPendingApproval
	e.ApprovalState = ApprovalPending
	e.StatusRequest = &StatusRequest{
		RequestedBy: actor.ID,
		NewStatus:   TaskDone,
		Comment:     act.Comment,
		Attachment:  act.Attachment,
		Date:        now,
		Status:      "Pending",
	}
	return nil
}

func (v *taskVariant) onApprove(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	e.ApprovalState = ApprovalApproved
	e.StatusRequest = nil
	t := now
	e.CompletedAt = &t
	return nil
}

// onReturn 退回: 发起审批申请的执行人的子任务重置为 In Progress
func (v *taskVariant) onReturn(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	e.ApprovalState = ApprovalReturned
	if e.StatusRequest != nil {
		setSubtask(e, e.StatusRequest.RequestedBy, TaskInProgress)
	}
	e.StatusRequest = nil
	e.Status = AggregateStatus(e.Subtasks)
	return nil
}

// onReopen 与通用请求一致: 新建关联实体,历史不可变
func (v *taskVariant) onReopen(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	subtasks := make([]Subtask, len(e.Subtasks))
	for i, st := range e.Subtasks {
		subtasks[i] = Subtask{AssigneeID: st.AssigneeID, Status: TaskToDo}
	}
	out.Reopened = &Entity{
		Kind:          KindTask,
		Status:        TaskToDo,
		RequesterID:   e.RequesterID,
		ApproverID:    e.ApproverID,
		Revision:      1,
		ViewedBy:      map[string]bool{actor.ID: true},
		Subtasks:      subtasks,
		ApprovalState: ApprovalNone,
		ReopenedFrom:  e.ID,
		Payload:       e.Payload,
	}
	out.Events = append(out.Events, Event{
		Type:       EventReopened,
		EntityID:   e.ID,
		Kind:       KindTask,
		ActorID:    actor.ID,
		Comment:    act.Comment,
		Recipients: recipients(e, actor.ID),
		OccurredAt: now,
	})
	return nil
}

func setSubtask(e *Entity, assigneeID string, status State) {
	for i := range e.Subtasks {
		if e.Subtasks[i].AssigneeID == assigneeID {
			e.Subtasks[i].Status = status
			return
		}
	}
}

package workflow

import (
	"fmt"
	"time"
)

// 通用请求类变体 (PPE / 内部请求 / 交接班日志) 的状态集合
const (
	StatusPending  State = "Pending"
	StatusApproved State = "Approved"
	StatusRejected State = "Rejected"
	StatusIssued   State = "Issued"
	StatusDisputed State = "Disputed"
)

// requestVariant 通用请求状态机
// PPE 请求、内部请求、日志请求共享同一张边表,仅变体类型不同
type requestVariant struct {
	kind VariantKind
}

// NewRequestVariant 创建通用请求变体
func NewRequestVariant(kind VariantKind) Variant {
	return &requestVariant{kind: kind}
}

func (v *requestVariant) Kind() VariantKind { return v.kind }

func (v *requestVariant) Initial() State { return StatusPending }

func (v *requestVariant) States() []State {
	return []State{StatusPending, StatusApproved, StatusRejected, StatusIssued, StatusDisputed}
}

// Terminal Rejected 为终态;Issued 仍有 dispute 出边,不视为终态
func (v *requestVariant) Terminal(s State) bool {
	return s == StatusRejected
}

func (v *requestVariant) Edges() []Edge {
	return []Edge{
		{
			From:       StatusPending,
			Action:     ActionApprove,
			To:         StatusApproved,
			Capability: CapApprove,
		},
		{
			From:           StatusPending,
			Action:         ActionReject,
			To:             StatusRejected,
			Capability:     CapApprove,
			RequireComment: true,
		},
		{
			From:       StatusApproved,
			Action:     ActionIssue,
			To:         StatusIssued,
			Capability: CapIssue,
			OnApply:    v.onIssue,
		},
		{
			From:           StatusIssued,
			Action:         ActionDispute,
			To:             StatusDisputed,
			RequesterOnly:  true,
			RequireComment: true,
		},
		{
			From:           StatusDisputed,
			Action:         ActionResolve,
			Capability:     CapIssue,
			RequireComment: true,
			Resolve:        v.resolveDispute,
			OnApply:        v.onResolve,
		},
		{
			From:       StatusRejected,
			Action:     ActionReopen,
			To:         StatusRejected,
			Capability: CapReopen,
			OnApply:    v.onReopen,
		},
	}
}

// onIssue 发放副作用: 库存扣减 + 发放历史记录
// 数量与物项对引擎不透明,原样透传给服务层执行
func (v *requestVariant) onIssue(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	out.Events = append(out.Events,
		Event{
			Type:       EventStockDecrement,
			EntityID:   e.ID,
			Kind:       e.Kind,
			ActorID:    actor.ID,
			Payload:    act.Payload,
			OccurredAt: now,
		},
		Event{
			Type:       EventHistoryAppend,
			EntityID:   e.ID,
			Kind:       e.Kind,
			ActorID:    actor.ID,
			Payload:    act.Payload,
			OccurredAt: now,
		},
	)
	return nil
}

// resolveDispute resolve 按 resolution 分支: reissue 回到 Issued,reverse 视为终态拒绝
func (v *requestVariant) resolveDispute(e *Entity, act Action) (State, error) {
	switch act.Payload["resolution"] {
	case ResolutionReissue:
		return StatusIssued, nil
	case ResolutionReverse:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: resolve requires resolution %q or %q",
			ErrInvalidTransition, ResolutionReissue, ResolutionReverse)
	}
}

// onResolve reissue 是一次全新发放: 追加第二条历史记录,不覆盖第一条
func (v *requestVariant) onResolve(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	if act.Payload["resolution"] == ResolutionReissue {
		return v.onIssue(e, act, actor, out, now)
	}
	return nil
}

// onReopen 终态不可变更,reopen 新建一个关联实体而不是改写历史
func (v *requestVariant) onReopen(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	out.Reopened = &Entity{
		Kind:          e.Kind,
		Status:        StatusPending,
		RequesterID:   e.RequesterID,
		ApproverID:    e.ApproverID,
		Revision:      1,
		ViewedBy:      map[string]bool{actor.ID: true},
		ApprovalState: ApprovalNone,
		ReopenedFrom:  e.ID,
		Payload:       e.Payload,
	}
	out.Events = append(out.Events, Event{
		Type:       EventReopened,
		EntityID:   e.ID,
		Kind:       e.Kind,
		ActorID:    actor.ID,
		Comment:    act.Comment,
		Recipients: recipients(e, actor.ID),
		OccurredAt: now,
	})
	return nil
}

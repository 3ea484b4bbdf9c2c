package workflow

import "time"

// 考勤表变体的状态集合
const (
	TimesheetPending            State = "Pending"
	TimesheetAcknowledged       State = "Acknowledged"
	TimesheetSentToOffice       State = "Sent To Office"
	TimesheetOfficeAcknowledged State = "Office Acknowledged"
	TimesheetRejected           State = "Rejected"
)

// timesheetVariant 考勤表线性链状态机
// 前进边按角色能力把关 (接收人 vs 办公室角色),而不是单一审批人字段
type timesheetVariant struct{}

// NewTimesheetVariant 创建考勤表变体
func NewTimesheetVariant() Variant {
	return &timesheetVariant{}
}

func (v *timesheetVariant) Kind() VariantKind { return KindTimesheet }

func (v *timesheetVariant) Initial() State { return TimesheetPending }

func (v *timesheetVariant) States() []State {
	return []State{
		TimesheetPending,
		TimesheetAcknowledged,
		TimesheetSentToOffice,
		TimesheetOfficeAcknowledged,
		TimesheetRejected,
	}
}

func (v *timesheetVariant) Terminal(s State) bool {
	return s == TimesheetOfficeAcknowledged
}

func (v *timesheetVariant) Edges() []Edge {
	return []Edge{
		{
			From:       TimesheetPending,
			Action:     ActionAcknowledge,
			To:         TimesheetAcknowledged,
			Capability: CapTimesheetHandle,
		},
		{
			From:       TimesheetAcknowledged,
			Action:     ActionSendToOffice,
			To:         TimesheetSentToOffice,
			Capability: CapTimesheetHandle,
		},
		{
			From:       TimesheetSentToOffice,
			Action:     ActionOfficeAcknowledge,
			To:         TimesheetOfficeAcknowledged,
			Capability: CapOfficeAcknowledge,
		},
		{
			From:           TimesheetSentToOffice,
			Action:         ActionReject,
			To:             TimesheetRejected,
			Capability:     CapOfficeAcknowledge,
			RequireComment: true,
		},
		{
			// 被拒后请求人答复并重新进入链条
			From:           TimesheetRejected,
			Action:         ActionReply,
			To:             TimesheetAcknowledged,
			RequesterOnly:  true,
			RequireComment: true,
		},
		{
			From:       TimesheetOfficeAcknowledged,
			Action:     ActionReopen,
			To:         TimesheetOfficeAcknowledged,
			Capability: CapReopen,
			OnApply:    v.onReopen,
		},
	}
}

func (v *timesheetVariant) onReopen(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error {
	out.Reopened = &Entity{
		Kind:          KindTimesheet,
		Status:        TimesheetPending,
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
		Kind:       KindTimesheet,
		ActorID:    actor.ID,
		Comment:    act.Comment,
		Recipients: recipients(e, actor.ID),
		OccurredAt: now,
	})
	return nil
}

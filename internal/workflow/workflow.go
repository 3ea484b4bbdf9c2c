package workflow

import (
	"encoding/json"
	"time"
)

// State 工作流状态
type State string

// StateAny 通配状态,用于允许从任意非终态出发的边
const StateAny State = "*"

// VariantKind 工作流变体类型
type VariantKind string

const (
	KindPpeRequest      VariantKind = "ppe_request"
	KindInternalRequest VariantKind = "internal_request"
	KindLogbookRequest  VariantKind = "logbook_request"
	KindTask            VariantKind = "task"
	KindTimesheet       VariantKind = "timesheet"
)

// ActionKind 动作类型
type ActionKind string

const (
	ActionApprove           ActionKind = "approve"
	ActionReject            ActionKind = "reject"
	ActionIssue             ActionKind = "issue"
	ActionDispute           ActionKind = "dispute"
	ActionResolve           ActionKind = "resolve"
	ActionComment           ActionKind = "comment"
	ActionReopen            ActionKind = "reopen"
	ActionSubmit            ActionKind = "submit"
	ActionReturn            ActionKind = "return"
	ActionUpdateSubtask     ActionKind = "update_subtask"
	ActionAcknowledge       ActionKind = "acknowledge"
	ActionSendToOffice      ActionKind = "send_to_office"
	ActionOfficeAcknowledge ActionKind = "office_acknowledge"
	ActionReply             ActionKind = "reply"
)

// Capability 命名权限,作为转换守卫使用,与角色名区分
type Capability string

const (
	CapApprove            Capability = "request:approve"
	CapIssue              Capability = "request:issue"
	CapReopen             Capability = "request:reopen"
	CapPurge              Capability = "request:purge"
	CapTimesheetHandle    Capability = "timesheet:handle"
	CapOfficeAcknowledge  Capability = "timesheet:office"
)

// Resolution 争议处理方式 (resolve 动作的 payload)
const (
	ResolutionReissue = "reissue"
	ResolutionReverse = "reverse"
)

// Actor 执行动作的用户及其能力集合
type Actor struct {
	ID           string
	Capabilities map[Capability]bool
}

// Has 判断 Actor 是否持有指定能力
func (a *Actor) Has(c Capability) bool {
	if a == nil {
		return false
	}
	return a.Capabilities[c]
}

// Action 工作流动作
type Action struct {
	Kind       ActionKind
	Comment    string
	Attachment string
	// Payload 动作附加参数,例如 resolve 的 resolution、update_subtask 的 status
	Payload map[string]string
	// Now 注入时钟,零值时引擎使用当前时间
	Now time.Time
}

// Comment 实体评论,插入顺序构成活动时间线
type Comment struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Text    string    `json:"text"`
	Date    time.Time `json:"date"`
	EventID string    `json:"event_id"` // 所属实体 ID (回引,不表示所有权)
}

// Subtask 多执行人任务的单人状态记录
type Subtask struct {
	AssigneeID string `json:"assignee_id"`
	Status     State  `json:"status"`
}

// ApprovalState 任务审批子状态 (与任务整体状态正交)
type ApprovalState string

const (
	ApprovalNone     ApprovalState = "none"
	ApprovalPending  ApprovalState = "status_pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalReturned ApprovalState = "returned"
)

// StatusRequest 任务提交审批时创建的状态变更申请
type StatusRequest struct {
	RequestedBy string    `json:"requested_by"`
	NewStatus   State     `json:"new_status"`
	Comment     string    `json:"comment"`
	Attachment  string    `json:"attachment"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"` // Pending
}

// Entity 工作流实体快照
// 引擎只读取身份、状态与评论字段;Payload 对引擎不透明
type Entity struct {
	ID            string          `json:"id"`
	Kind          VariantKind     `json:"kind"`
	Status        State           `json:"status"`
	RequesterID   string          `json:"requester_id"`
	ApproverID    string          `json:"approver_id,omitempty"`
	Revision      int64           `json:"revision"`
	Comments      []Comment       `json:"comments,omitempty"`
	ViewedBy      map[string]bool `json:"viewed_by,omitempty"`
	Subtasks      []Subtask       `json:"subtasks,omitempty"`
	ApprovalState ApprovalState   `json:"approval_state,omitempty"`
	StatusRequest *StatusRequest  `json:"status_request,omitempty"`
	ReopenedFrom  string          `json:"reopened_from,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Clone 深拷贝实体,引擎在副本上变更,失败时原实体保持不变
func (e *Entity) Clone() *Entity {
	c := *e
	c.Comments = make([]Comment, len(e.Comments))
	copy(c.Comments, e.Comments)
	c.ViewedBy = make(map[string]bool, len(e.ViewedBy))
	for k, v := range e.ViewedBy {
		c.ViewedBy[k] = v
	}
	c.Subtasks = make([]Subtask, len(e.Subtasks))
	copy(c.Subtasks, e.Subtasks)
	if e.StatusRequest != nil {
		sr := *e.StatusRequest
		c.StatusRequest = &sr
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	if e.Payload != nil {
		c.Payload = make(json.RawMessage, len(e.Payload))
		copy(c.Payload, e.Payload)
	}
	return &c
}

// Participants 返回实体参与者 ID 列表 (请求人、审批人、执行人,去重)
func (e *Entity) Participants() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	add(e.RequesterID)
	add(e.ApproverID)
	for _, st := range e.Subtasks {
		add(st.AssigneeID)
	}
	return out
}

// IsParticipant 判断用户是否为实体参与者
func (e *Entity) IsParticipant(userID string) bool {
	for _, id := range e.Participants() {
		if id == userID {
			return true
		}
	}
	return false
}

// EventType 引擎发出的副作用事件类型
type EventType string

const (
	EventStatusChanged  EventType = "status_changed"
	EventCommentAdded   EventType = "comment_added"
	EventStockDecrement EventType = "stock_decrement"
	EventHistoryAppend  EventType = "history_append"
	EventReopened       EventType = "reopened"
)

// Event 引擎发出的副作用事件
// 引擎本身不执行副作用,由调用方 (服务层/通知分发器) 消费
type Event struct {
	Type       EventType         `json:"type"`
	EntityID   string            `json:"entity_id"`
	Kind       VariantKind       `json:"kind"`
	ActorID    string            `json:"actor_id"`
	From       State             `json:"from,omitempty"`
	To         State             `json:"to,omitempty"`
	Comment    string            `json:"comment,omitempty"`
	Recipients []string          `json:"recipients,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Outcome Apply 的结果: 新实体状态与待消费的事件列表
// Reopened 仅在 reopen 动作时非空,指向新建的关联实体
type Outcome struct {
	Entity   *Entity
	Events   []Event
	Reopened *Entity
}

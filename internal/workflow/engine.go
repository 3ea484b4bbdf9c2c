package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine 工作流引擎
// 纯同步转换函数: (实体, 动作, Actor) -> (新实体, 事件列表)
// 引擎不做任何 IO,持久化与通知由调用方消费 Outcome 完成
type Engine struct {
	variants map[VariantKind]Variant
	clock    func() time.Time
}

// Option 引擎选项
type Option func(*Engine)

// WithClock 注入时钟 (测试用)
func WithClock(clock func() time.Time) Option {
	return func(g *Engine) { g.clock = clock }
}

// NewEngine 创建引擎并注册内置变体
func NewEngine(opts ...Option) *Engine {
	g := &Engine{
		variants: make(map[VariantKind]Variant),
		clock:    time.Now,
	}
	for _, v := range []Variant{
		NewRequestVariant(KindPpeRequest),
		NewRequestVariant(KindInternalRequest),
		NewRequestVariant(KindLogbookRequest),
		NewTaskVariant(),
		NewTimesheetVariant(),
	} {
		g.variants[v.Kind()] = v
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register 注册自定义变体 (覆盖同名内置变体)
func (g *Engine) Register(v Variant) {
	g.variants[v.Kind()] = v
}

// Variant 返回已注册的变体
func (g *Engine) Variant(kind VariantKind) (Variant, bool) {
	v, ok := g.variants[kind]
	return v, ok
}

// NewEntity 按变体初始状态创建实体
func (g *Engine) NewEntity(kind VariantKind, requesterID string) (*Entity, error) {
	v, ok := g.variants[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, kind)
	}
	return &Entity{
		Kind:          kind,
		Status:        v.Initial(),
		RequesterID:   requesterID,
		Revision:      1,
		ViewedBy:      map[string]bool{requesterID: true},
		ApprovalState: ApprovalNone,
	}, nil
}

// Apply 对实体应用动作
// 失败时返回错误且原实体保持不变;成功时返回新实体与事件列表
func (g *Engine) Apply(e *Entity, act Action, actor *Actor) (*Outcome, error) {
	v, ok := g.variants[e.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, e.Kind)
	}
	if actor == nil || actor.ID == "" {
		return nil, fmt.Errorf("%w: missing actor", ErrUnauthorized)
	}

	now := act.Now
	if now.IsZero() {
		now = g.clock()
	}

	// 纯评论动作: 任意状态下允许,不改变 status
	if act.Kind == ActionComment {
		return g.applyComment(e, act, actor, now)
	}

	edge, err := findEdge(v, e.Status, act.Kind)
	if err != nil {
		return nil, err
	}

	if err := checkGuard(e, edge, actor); err != nil {
		return nil, err
	}
	if edge.RequireComment && strings.TrimSpace(act.Comment) == "" {
		return nil, fmt.Errorf("%w: %s", ErrCommentRequired, act.Kind)
	}

	target := edge.To
	if edge.Resolve != nil {
		target, err = edge.Resolve(e, act)
		if err != nil {
			return nil, err
		}
	}

	clone := e.Clone()
	out := &Outcome{Entity: clone}

	from := clone.Status
	clone.Status = target
	clone.Revision++
	if strings.TrimSpace(act.Comment) != "" {
		appendComment(clone, actor.ID, act.Comment, now)
	}
	resetViewed(clone, actor.ID)

	if edge.OnApply != nil {
		if err := edge.OnApply(clone, act, actor, out, now); err != nil {
			return nil, err
		}
	}

	if clone.Status != from {
		out.Events = append(out.Events, Event{
			Type:       EventStatusChanged,
			EntityID:   e.ID,
			Kind:       e.Kind,
			ActorID:    actor.ID,
			From:       from,
			To:         clone.Status,
			Comment:    act.Comment,
			Recipients: recipients(clone, actor.ID),
			OccurredAt: now,
		})
	}

	return out, nil
}

// MarkViewed 标记用户已读,幂等: 重复调用不改变状态也不产生事件
func (g *Engine) MarkViewed(e *Entity, userID string) *Entity {
	if e.ViewedBy[userID] {
		return e
	}
	clone := e.Clone()
	clone.ViewedBy[userID] = true
	return clone
}

// applyComment 纯日志追加: 状态不变,重置其他参与者的已读标记
func (g *Engine) applyComment(e *Entity, act Action, actor *Actor, now time.Time) (*Outcome, error) {
	if !e.IsParticipant(actor.ID) && !actor.Has(CapApprove) && !actor.Has(CapIssue) {
		return nil, fmt.Errorf("%w: %s is not a participant", ErrUnauthorized, actor.ID)
	}
	if strings.TrimSpace(act.Comment) == "" {
		return nil, fmt.Errorf("%w: comment", ErrCommentRequired)
	}

	clone := e.Clone()
	clone.Revision++
	appendComment(clone, actor.ID, act.Comment, now)
	resetViewed(clone, actor.ID)

	return &Outcome{
		Entity: clone,
		Events: []Event{{
			Type:       EventCommentAdded,
			EntityID:   e.ID,
			Kind:       e.Kind,
			ActorID:    actor.ID,
			Comment:    act.Comment,
			Recipients: recipients(clone, actor.ID),
			OccurredAt: now,
		}},
	}, nil
}

// findEdge 在边表中查找匹配边,StateAny 边匹配任意非终态
func findEdge(v Variant, from State, kind ActionKind) (Edge, error) {
	for _, edge := range v.Edges() {
		if edge.Action != kind {
			continue
		}
		if edge.From == from {
			return edge, nil
		}
		if edge.From == StateAny && !v.Terminal(from) {
			return edge, nil
		}
	}
	return Edge{}, fmt.Errorf("%w: %s from %q", ErrInvalidTransition, kind, from)
}

// checkGuard 校验边的能力与身份约束
func checkGuard(e *Entity, edge Edge, actor *Actor) error {
	if edge.Capability != "" && !actor.Has(edge.Capability) {
		return fmt.Errorf("%w: %s requires %s", ErrUnauthorized, edge.Action, edge.Capability)
	}
	if edge.RequesterOnly && actor.ID != e.RequesterID {
		return fmt.Errorf("%w: only the requester may %s", ErrUnauthorized, edge.Action)
	}
	if edge.ApproverOnly && actor.ID != e.RequesterID && actor.ID != e.ApproverID {
		return fmt.Errorf("%w: only the creator or delegated approver may %s", ErrUnauthorized, edge.Action)
	}
	if edge.Guard != nil {
		if err := edge.Guard(e, actor); err != nil {
			return err
		}
	}
	return nil
}

func appendComment(e *Entity, userID, text string, now time.Time) {
	e.Comments = append(e.Comments, Comment{
		ID:      uuid.New().String(),
		UserID:  userID,
		Text:    text,
		Date:    now,
		EventID: e.ID,
	})
}

// resetViewed 将除动作执行者外所有参与者的已读标记重置为 false
func resetViewed(e *Entity, actorID string) {
	if e.ViewedBy == nil {
		e.ViewedBy = make(map[string]bool)
	}
	for _, id := range e.Participants() {
		e.ViewedBy[id] = id == actorID
	}
	e.ViewedBy[actorID] = true
}

// recipients 事件通知对象: 除动作执行者外的全部参与者
func recipients(e *Entity, actorID string) []string {
	var out []string
	for _, id := range e.Participants() {
		if id != actorID {
			out = append(out, id)
		}
	}
	return out
}

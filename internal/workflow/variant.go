package workflow

import "time"

// Edge 状态机的一条允许边
type Edge struct {
	From   State
	Action ActionKind
	To     State

	// Capability 转换所需能力,空值表示任意参与者可执行
	Capability Capability
	// RequesterOnly 仅实体请求人可执行
	RequesterOnly bool
	// ApproverOnly 仅创建人或被委派的审批人可执行
	ApproverOnly bool
	// RequireComment 该边强制要求非空评论 (由引擎保证,不依赖 UI)
	RequireComment bool

	// Guard 自定义授权谓词,在能力/身份约束之后执行
	Guard func(e *Entity, actor *Actor) error

	// Resolve 动态目标状态,非空时覆盖 To (例如 resolve 按 resolution 分支)
	Resolve func(e *Entity, act Action) (State, error)
	// OnApply 边生效后的实体变更钩子,在克隆副本上执行
	OnApply func(e *Entity, act Action, actor *Actor, out *Outcome, now time.Time) error
}

// Variant 一种工作流变体的声明式定义
// 引擎对变体无感知,仅依赖该接口提供的状态集、边表与终态判定
type Variant interface {
	Kind() VariantKind
	// Initial 创建实体时的初始状态
	Initial() State
	// States 该变体的完整状态集合
	States() []State
	// Terminal 判断状态是否为终态 (终态只允许 reopen 边离开)
	Terminal(s State) bool
	// Edges 允许边表
	Edges() []Edge
}

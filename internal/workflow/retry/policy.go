// Package retry 驱动"调用-抽取-校验"循环，直到模型输出通过校验或用尽尝试次数。
package retry

// 规划阶段的收紧指令
const (
	JSONOnlyInstruction   = "Return ONLY the JSON array of tasks (no surrounding text). The array should contain objects with fields: title, description, priority, owner, due_date."
	StrictJSONInstruction = "You must output a valid JSON array only. No explanation. Each element must have a title string. If you cannot, return []"
)

// Attempt 一次尝试的参数
type Attempt struct {
	Index       int
	Instruction string
	Temperature float64
}

// Policy 重试策略表，第 i 项即第 i 次尝试
type Policy struct {
	Attempts []Attempt
}

// PolicyConfig 构建策略的参数
type PolicyConfig struct {
	MaxAttempts         int
	CreativeTemperature float64
	StrictTemperature   float64
}

// DefaultPolicyConfig 三次尝试，首轮 0.7，其后 0
var DefaultPolicyConfig = PolicyConfig{
	MaxAttempts:         3,
	CreativeTemperature: 0.7,
	StrictTemperature:   0,
}

// NewPolicy 首轮使用 primary 指令与创意温度，之后依次使用 stricter 中的指令，
// stricter 用完后重复最后一条。
func NewPolicy(cfg PolicyConfig, primary string, stricter ...string) Policy {
	n := cfg.MaxAttempts
	if n < 1 {
		n = 1
	}
	attempts := make([]Attempt, 0, n)
	attempts = append(attempts, Attempt{Index: 0, Instruction: primary, Temperature: cfg.CreativeTemperature})
	for i := 1; i < n; i++ {
		instruction := primary
		if len(stricter) > 0 {
			instruction = stricter[min(i-1, len(stricter)-1)]
		}
		attempts = append(attempts, Attempt{Index: i, Instruction: instruction, Temperature: cfg.StrictTemperature})
	}
	return Policy{Attempts: attempts}
}

// TaskArrayPolicy 规划阶段使用的策略
func TaskArrayPolicy(cfg PolicyConfig, primary string) Policy {
	return NewPolicy(cfg, primary, JSONOnlyInstruction, StrictJSONInstruction)
}

// Ceiling 最大尝试次数
func (p Policy) Ceiling() int {
	return len(p.Attempts)
}

// State 状态机当前位置
type State struct {
	Current  Attempt
	Done     bool
	Accepted bool
}

// Start 初始状态
func (p Policy) Start() State {
	if len(p.Attempts) == 0 {
		return State{Done: true}
	}
	return State{Current: p.Attempts[0]}
}

// Next 纯函数：根据本次尝试是否通过校验给出下一个状态
func (p Policy) Next(s State, accepted bool) State {
	if s.Done {
		return s
	}
	if accepted {
		return State{Current: s.Current, Done: true, Accepted: true}
	}
	next := s.Current.Index + 1
	if next >= len(p.Attempts) {
		return State{Current: s.Current, Done: true}
	}
	return State{Current: p.Attempts[next]}
}

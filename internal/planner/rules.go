package planner

// BackfillRule maps topic phrases to engine symbols that should always be
// looked up when the phrase appears, even if the symbol itself never does.
// Fuzzy search cannot follow the inheritance chain from e.g. a "click"
// question to the dispatch API shared by every display class, so these rules
// force the lookup explicitly.
type BackfillRule struct {
	Triggers []string
	Symbols  []string
}

// DefaultBackfillRules is the stock topic-to-symbol table.
func DefaultBackfillRules() []BackfillRule {
	return []BackfillRule{
		{Triggers: []string{"点击", "事件", "监听", "click", "event", "listener"}, Symbols: []string{"EventDispatcher"}},
		{Triggers: []string{"触摸", "滑动", "手势", "touch", "swipe"}, Symbols: []string{"Input"}},
		{Triggers: []string{"碰撞", "物理", "刚体", "collision", "physics", "rigidbody"}, Symbols: []string{"Rigidbody3D", "PhysicsColliderComponent"}},
		{Triggers: []string{"场景切换", "切换场景", "场景加载", "加载场景"}, Symbols: []string{"Scene", "Scene3D"}},
		{Triggers: []string{"资源加载", "加载资源", "预加载", "preload"}, Symbols: []string{"Loader"}},
		{Triggers: []string{"定时器", "计时", "延时", "timer", "interval", "timeout"}, Symbols: []string{"Timer"}},
		{Triggers: []string{"动画", "spine", "骨骼", "animation", "skeleton"}, Symbols: []string{"Animator", "Animation"}},
		{Triggers: []string{"按钮", "列表", "对话框", "弹窗", "button", "dialog"}, Symbols: []string{"Button", "List", "Dialog"}},
	}
}

// DefaultIdentifierStoplist lists capitalized tokens that look like engine
// classes but are generic acronyms, error names or the namespace itself.
func DefaultIdentifierStoplist() []string {
	return []string{
		"API", "URL", "HTML", "CSS", "JSON", "HTTP", "HTTPS", "IDE", "GET", "POST",
		"PNG", "JPG", "UUID", "CPU", "GPU", "FPS", "SDK", "UI", "Laya", "LayaAir",
		"TypeScript", "JavaScript", "TypeError", "ReferenceError", "SyntaxError",
		"RangeError", "Cannot", "Error", "Uncaught",
	}
}

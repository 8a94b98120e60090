package automgr

type actionKind int

const (
	actionNone actionKind = iota
	actionAbort
	actionClear
	actionPushAbove
	actionPushBelow
	actionPop
	actionReplace
)

// StackAction is what a state's step asks the manager to do with the stack.
type StackAction struct {
	kind  actionKind
	state State
}

// ActionNone leaves the stack alone.
func ActionNone() StackAction { return StackAction{} }

// ActionAbort clears the stack and pushes a Stop.
func ActionAbort() StackAction { return StackAction{kind: actionAbort} }

// ActionClear empties the stack.
func ActionClear() StackAction { return StackAction{kind: actionClear} }

// ActionPushAbove pushes a state above the current top.
func ActionPushAbove(state State) StackAction {
	return StackAction{kind: actionPushAbove, state: state}
}

// ActionPushBelow pushes a state below the current top, to run when the top
// pops.
func ActionPushBelow(state State) StackAction {
	return StackAction{kind: actionPushBelow, state: state}
}

// ActionPop removes the current top.
func ActionPop() StackAction { return StackAction{kind: actionPop} }

// ActionReplace swaps the current top for another state.
func ActionReplace(state State) StackAction {
	return StackAction{kind: actionReplace, state: state}
}

// IsNone reports whether the action leaves the stack alone.
func (s StackAction) IsNone() bool { return s.kind == actionNone }

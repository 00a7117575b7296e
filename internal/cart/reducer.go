package cart

// ActionType enumerates the cart mutations.
type ActionType int

const (
	ActionAdd ActionType = iota
	ActionSetQty
	ActionIncrement
	ActionDecrement
	ActionRemove
	ActionClear
)

// Action is one discrete cart mutation. Line is only read for ActionAdd;
// ID addresses an existing line for the others.
type Action struct {
	Type ActionType
	Line Line
	ID   string
	Qty  int
}

// Apply is the pure transition function over cart state. It never mutates its
// input; callers get a fresh State with a fresh Items slice.
//
// Quantity policy: SetQty clamps into [1,99] even for zero or negative input
// (a zero typed into a quantity box means "fix the box"), while Decrement
// below one removes the line ("take this out of the cart"). The asymmetry is
// intentional.
func Apply(state State, action Action) State {
	switch action.Type {
	case ActionAdd:
		items := copyItems(state.Items)
		idx := findIndexByID(items, action.Line.ID)
		if idx != -1 {
			items[idx].Qty = clampQty(items[idx].Qty + action.Qty)
		} else {
			line := action.Line
			line.Qty = clampQty(action.Qty)
			items = append(items, line)
		}
		return State{Items: items}

	case ActionSetQty:
		idx := findIndexByID(state.Items, action.ID)
		if idx == -1 {
			return state
		}
		items := copyItems(state.Items)
		items[idx].Qty = clampQty(action.Qty)
		return State{Items: items}

	case ActionIncrement:
		idx := findIndexByID(state.Items, action.ID)
		if idx == -1 {
			return state
		}
		items := copyItems(state.Items)
		items[idx].Qty = clampQty(items[idx].Qty + 1)
		return State{Items: items}

	case ActionDecrement:
		idx := findIndexByID(state.Items, action.ID)
		if idx == -1 {
			return state
		}
		items := copyItems(state.Items)
		if next := items[idx].Qty - 1; next < MinQty {
			items = append(items[:idx], items[idx+1:]...)
		} else {
			items[idx].Qty = next
		}
		return State{Items: items}

	case ActionRemove:
		idx := findIndexByID(state.Items, action.ID)
		if idx == -1 {
			return state
		}
		items := copyItems(state.Items)
		items = append(items[:idx], items[idx+1:]...)
		return State{Items: items}

	case ActionClear:
		return State{Items: []Line{}}

	default:
		return state
	}
}

func copyItems(items []Line) []Line {
	out := make([]Line, len(items))
	copy(out, items)
	return out
}

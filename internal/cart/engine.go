package cart

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/remsmachous/jo-storefront/internal/store"
)

// Engine owns the in-memory cart and keeps the durable store in sync. The
// in-memory state is authoritative once restored; the store is a cache of the
// last-known-good snapshot. Engine methods are meant to be driven from a
// single UI goroutine.
type Engine struct {
	state State
	store store.Store
	log   *slog.Logger
}

// NewEngine restores the cart from the store. Absent, malformed or partially
// valid snapshots degrade to a smaller (possibly empty) cart; the constructor
// never fails because of bad persisted state.
func NewEngine(st store.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		state: restore(st, log),
		store: st,
		log:   log,
	}
}

func (e *Engine) Add(line Line, qty int) {
	e.dispatch(Action{Type: ActionAdd, Line: line, Qty: qty})
}

func (e *Engine) SetQuantity(id string, qty int) {
	e.dispatch(Action{Type: ActionSetQty, ID: id, Qty: qty})
}

func (e *Engine) Increment(id string) {
	e.dispatch(Action{Type: ActionIncrement, ID: id})
}

func (e *Engine) Decrement(id string) {
	e.dispatch(Action{Type: ActionDecrement, ID: id})
}

func (e *Engine) Remove(id string) {
	e.dispatch(Action{Type: ActionRemove, ID: id})
}

// Clear empties the cart, used after a completed purchase.
func (e *Engine) Clear() {
	e.dispatch(Action{Type: ActionClear})
}

// Items returns a copy of the current lines in insertion order.
func (e *Engine) Items() []Line {
	return copyItems(e.state.Items)
}

func (e *Engine) TotalQuantity() int {
	return e.state.TotalQuantity()
}

func (e *Engine) TotalAmount() decimal.Decimal {
	return e.state.TotalAmount()
}

// dispatch applies the action and persists the full snapshot. Persistence is
// best effort: a failed write only costs the latest mutation after a reload,
// the in-memory state stays correct for the current session.
func (e *Engine) dispatch(action Action) {
	e.state = Apply(e.state, action)

	data, err := json.Marshal(e.state)
	if err != nil {
		e.log.Warn("cart snapshot marshal failed", "err", err)
		return
	}
	if err := e.store.Set(store.KeyCart, data); err != nil {
		e.log.Warn("cart snapshot write failed", "err", err)
	}
}

// persistedLine tolerates snapshots written by older storefront builds:
// titre/prix are the legacy keys for title/price.
type persistedLine struct {
	ID    flexString  `json:"id"`
	Title string      `json:"title"`
	Titre string      `json:"titre"`
	Price flexDecimal `json:"price"`
	Prix  flexDecimal `json:"prix"`
	Qty   flexInt     `json:"qty"`
}

func restore(st store.Store, log *slog.Logger) State {
	raw, err := st.Get(store.KeyCart)
	if err != nil {
		return State{Items: []Line{}}
	}

	var snapshot struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		log.Debug("cart snapshot unreadable, starting empty", "err", err)
		return State{Items: []Line{}}
	}

	items := make([]Line, 0, len(snapshot.Items))
	for _, rawLine := range snapshot.Items {
		line, ok := decodeLine(rawLine)
		if !ok {
			continue
		}
		if findIndexByID(items, line.ID) != -1 {
			continue
		}
		items = append(items, line)
	}
	return State{Items: items}
}

// decodeLine validates one persisted line: id present, title non-empty after
// trimming, positive price (falling back to the legacy field), quantity
// defaulted to 1 and clamped. Invalid lines are dropped, never surfaced.
func decodeLine(raw json.RawMessage) (Line, bool) {
	var p persistedLine
	if err := json.Unmarshal(raw, &p); err != nil {
		return Line{}, false
	}

	id := strings.TrimSpace(string(p.ID))
	if id == "" {
		return Line{}, false
	}

	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = strings.TrimSpace(p.Titre)
	}
	if title == "" {
		return Line{}, false
	}

	price := decimal.Decimal(p.Price)
	if !price.IsPositive() {
		price = decimal.Decimal(p.Prix)
	}
	if !price.IsPositive() {
		return Line{}, false
	}

	qty := int(p.Qty)
	if qty < 1 {
		qty = 1
	}

	return Line{ID: id, Title: title, UnitPrice: price, Qty: clampQty(qty)}, true
}

// flexDecimal decodes a JSON number or numeric string; anything else (null,
// garbage) collapses to zero so the price fallback can still apply.
type flexDecimal decimal.Decimal

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		*f = flexDecimal(decimal.Zero)
		return nil
	}
	*f = flexDecimal(d)
	return nil
}

// flexInt decodes a JSON integer; anything else collapses to zero and the
// caller's default-to-one rule takes over.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// flexString decodes a JSON string or number. Offer ids came back from the
// backend as numbers but older snapshots stored slugs.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

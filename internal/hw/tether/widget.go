package tether

import "fmt"

// WidgetType distinguishes structural nodes from value leaves in the
// configuration tree.
type WidgetType int

const (
	WidgetWindow WidgetType = iota
	WidgetSection
	WidgetText
	WidgetMenu
	WidgetToggle
)

// Widget is one node of the device's hierarchical configuration tree.
// Window and section widgets carry children; the other types carry a value.
type Widget struct {
	Name     string
	Label    string
	Type     WidgetType
	Value    string
	Choices  []string
	ReadOnly bool
	Children []*Widget
}

// IsLeaf reports whether the widget carries a value rather than children.
func (w *Widget) IsLeaf() bool {
	return w.Type != WidgetWindow && w.Type != WidgetSection
}

// ChildByName searches the subtree rooted at w for a widget with the given
// name, depth-first.
func (w *Widget) ChildByName(name string) (*Widget, bool) {
	if w.Name == name {
		return w, true
	}
	for _, c := range w.Children {
		if found, ok := c.ChildByName(name); ok {
			return found, true
		}
	}
	return nil, false
}

// SetValue updates a leaf value, enforcing read-only and choice constraints
// the way the device SDK would.
func (w *Widget) SetValue(v string) error {
	if !w.IsLeaf() {
		return fmt.Errorf("%w: %s is not a value widget", ErrValueRejected, w.Name)
	}
	if w.ReadOnly {
		return fmt.Errorf("%w: %s is read-only", ErrValueRejected, w.Name)
	}
	if len(w.Choices) > 0 {
		ok := false
		for _, c := range w.Choices {
			if c == v {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %q is not a choice of %s", ErrValueRejected, v, w.Name)
		}
	}
	w.Value = v
	return nil
}

// Walk visits every widget in the subtree rooted at w in document order.
func (w *Widget) Walk(fn func(*Widget)) {
	fn(w)
	for _, c := range w.Children {
		c.Walk(fn)
	}
}

// Clone returns a deep copy of the subtree rooted at w.
func (w *Widget) Clone() *Widget {
	cp := *w
	cp.Choices = append([]string(nil), w.Choices...)
	cp.Children = make([]*Widget, len(w.Children))
	for i, c := range w.Children {
		cp.Children[i] = c.Clone()
	}
	return &cp
}

package table

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mesh-intelligence/tabula/pkg/event"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Operator selects how a ColumnCondition tests a value.
type Operator int

// Operators. Range operators read the lower and upper bounds, Equal and
// NotEqual read the equal operand and In and NotIn read the in operands.
const (
	Equal Operator = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	BetweenExclusive
	Between
	NotBetweenExclusive
	NotBetween
	In
	NotIn
)

var operatorSymbols = [...]string{"=", "!=", "<", "<=", ">", ">=", "<x<", "<=x<=", ">x>", ">=x>=", "in", "not in"}

// String returns the operator symbol.
func (o Operator) String() string {
	if o < Equal || o > NotIn {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorSymbols[o]
}

// Wildcard decides which wildcards are added automatically to a string
// equal operand.
type Wildcard int

// Automatic wildcards.
const (
	WildcardNone Wildcard = iota
	WildcardPrefix
	WildcardPostfix
	WildcardPrefixAndPostfix
)

// WildcardCharacter matches any run of characters in a string equal operand.
const WildcardCharacter = "%"

// ColumnCondition is the filter state of one column. The zero value is not
// usable; conditions are created by Conditions.Condition.
type ColumnCondition struct {
	mu            sync.Mutex
	compare       types.Comparator
	enabled       bool
	autoEnable    bool
	operator      Operator
	equal         any
	in            []any
	lower, upper  any
	wildcard      Wildcard
	caseSensitive bool
	predicate     func(any) bool
	pattern       *regexp.Regexp
	changed       event.Event[struct{}]
}

func newColumnCondition(compare types.Comparator) *ColumnCondition {
	if compare == nil {
		compare = CompareValues
	}
	return &ColumnCondition{compare: compare, autoEnable: true, caseSensitive: true}
}

// update applies fn, re-derives the enabled state and fires Changed.
func (c *ColumnCondition) update(fn func()) {
	c.mu.Lock()
	fn()
	if c.autoEnable {
		c.enabled = c.operandsPresentLocked()
	}
	c.pattern = nil
	if s, ok := c.fold(c.equalOperandLocked()).(string); ok && strings.Contains(s, WildcardCharacter) {
		c.pattern = wildcardPattern(s)
	}
	c.mu.Unlock()
	c.changed.Fire(struct{}{})
}

func (c *ColumnCondition) operandsPresentLocked() bool {
	if c.predicate != nil {
		return true
	}
	switch c.operator {
	case Equal, NotEqual:
		return !IsNil(c.equal)
	case LessThan, LessThanOrEqual:
		return !IsNil(c.upper)
	case GreaterThan, GreaterThanOrEqual:
		return !IsNil(c.lower)
	case BetweenExclusive, Between, NotBetweenExclusive, NotBetween:
		return !IsNil(c.lower) && !IsNil(c.upper)
	default:
		return len(c.in) > 0
	}
}

// Changed fires after any change to the condition.
func (c *ColumnCondition) Changed() event.Observer[struct{}] { return &c.changed }

// Enabled reports whether the condition takes part in filtering.
func (c *ColumnCondition) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetEnabled enables or disables the condition. It also turns auto-enable
// off, since an explicit choice would otherwise be overridden.
func (c *ColumnCondition) SetEnabled(enabled bool) {
	c.update(func() {
		c.autoEnable = false
		c.enabled = enabled
	})
}

// SetAutoEnable makes the enabled state follow operand presence.
func (c *ColumnCondition) SetAutoEnable(auto bool) {
	c.update(func() { c.autoEnable = auto })
}

// Operator returns the current operator.
func (c *ColumnCondition) Operator() Operator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.operator
}

// SetOperator sets the operator. It returns ErrInvalidOperator for an
// undefined operator.
func (c *ColumnCondition) SetOperator(op Operator) error {
	if op < Equal || op > NotIn {
		return fmt.Errorf("%w: %d", types.ErrInvalidOperator, int(op))
	}
	c.update(func() { c.operator = op })
	return nil
}

// SetEqual sets the Equal and NotEqual operand. A string operand gets the
// automatic wildcards.
func (c *ColumnCondition) SetEqual(v any) {
	c.update(func() { c.equal = v })
}

// Equal returns the equal operand with automatic wildcards applied.
func (c *ColumnCondition) Equal() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.equalOperandLocked()
}

// SetIn sets the In and NotIn operands.
func (c *ColumnCondition) SetIn(values ...any) {
	c.update(func() { c.in = append([]any(nil), values...) })
}

// SetLower sets the lower bound.
func (c *ColumnCondition) SetLower(v any) {
	c.update(func() { c.lower = v })
}

// SetUpper sets the upper bound.
func (c *ColumnCondition) SetUpper(v any) {
	c.update(func() { c.upper = v })
}

// SetBounds sets both bounds with one notification.
func (c *ColumnCondition) SetBounds(lower, upper any) {
	c.update(func() { c.lower, c.upper = lower, upper })
}

// SetWildcard sets the automatic wildcard.
func (c *ColumnCondition) SetWildcard(w Wildcard) {
	c.update(func() { c.wildcard = w })
}

// SetCaseSensitive sets whether string comparisons are case sensitive.
func (c *ColumnCondition) SetCaseSensitive(sensitive bool) {
	c.update(func() { c.caseSensitive = sensitive })
}

// SetPredicate replaces operator matching with fn. Nil restores it.
func (c *ColumnCondition) SetPredicate(fn func(any) bool) {
	c.update(func() { c.predicate = fn })
}

// Clear resets every operand and the predicate.
func (c *ColumnCondition) Clear() {
	c.update(c.resetLocked)
}

func (c *ColumnCondition) resetLocked() {
	c.equal, c.lower, c.upper = nil, nil, nil
	c.in = nil
	c.predicate = nil
	if !c.autoEnable {
		c.enabled = false
	}
}

// Accepts reports whether value passes the condition. A disabled condition
// accepts everything.
func (c *ColumnCondition) Accepts(value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return true
	}
	if c.predicate != nil {
		return c.predicate(value)
	}
	return c.acceptsLocked(value)
}

func (c *ColumnCondition) acceptsLocked(value any) bool {
	if s, ok := value.(string); ok && s == "" {
		value = nil
	}
	value = c.fold(value)
	switch c.operator {
	case Equal:
		return c.isEqual(value)
	case NotEqual:
		return !c.isEqual(value)
	case LessThan:
		return IsNil(c.upper) || !IsNil(value) && c.cmp(value, c.upper) < 0
	case LessThanOrEqual:
		return IsNil(c.upper) || !IsNil(value) && c.cmp(value, c.upper) <= 0
	case GreaterThan:
		return IsNil(c.lower) || !IsNil(value) && c.cmp(value, c.lower) > 0
	case GreaterThanOrEqual:
		return IsNil(c.lower) || !IsNil(value) && c.cmp(value, c.lower) >= 0
	case BetweenExclusive, Between, NotBetweenExclusive, NotBetween:
		return c.inRange(value)
	case In:
		return c.isIn(value)
	case NotIn:
		return !c.isIn(value)
	default:
		return false
	}
}

// cmp compares a value against an operand, folding the operand's case.
func (c *ColumnCondition) cmp(value, operand any) int {
	return c.compare(value, c.fold(operand))
}

func (c *ColumnCondition) fold(v any) any {
	if s, ok := v.(string); ok && !c.caseSensitive {
		return strings.ToLower(s)
	}
	return v
}

func (c *ColumnCondition) equalOperandLocked() any {
	s, ok := c.equal.(string)
	if !ok {
		return c.equal
	}
	if c.wildcard == WildcardPrefix || c.wildcard == WildcardPrefixAndPostfix {
		if !strings.HasPrefix(s, WildcardCharacter) {
			s = WildcardCharacter + s
		}
	}
	if c.wildcard == WildcardPostfix || c.wildcard == WildcardPrefixAndPostfix {
		if !strings.HasSuffix(s, WildcardCharacter) {
			s += WildcardCharacter
		}
	}
	return s
}

func (c *ColumnCondition) isEqual(value any) bool {
	operand := c.fold(c.equalOperandLocked())
	if IsNil(value) || IsNil(operand) {
		return IsNil(value) && IsNil(operand)
	}
	if s, ok := value.(string); ok && c.pattern != nil {
		return c.pattern.MatchString(s)
	}
	return c.compare(value, operand) == 0
}

// wildcardPattern compiles pattern to a full-match regexp, each
// WildcardCharacter standing for any run of characters.
func wildcardPattern(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, WildcardCharacter)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^(?s)" + strings.Join(parts, ".*") + "$")
}

func (c *ColumnCondition) inRange(value any) bool {
	lowerNil, upperNil := IsNil(c.lower), IsNil(c.upper)
	if lowerNil && upperNil {
		return true
	}
	if IsNil(value) {
		return false
	}
	var lo, hi int
	if !lowerNil {
		lo = c.cmp(value, c.lower)
	}
	if !upperNil {
		hi = c.cmp(value, c.upper)
	}
	switch c.operator {
	case BetweenExclusive:
		return (lowerNil || lo > 0) && (upperNil || hi < 0)
	case Between:
		return (lowerNil || lo >= 0) && (upperNil || hi <= 0)
	case NotBetweenExclusive:
		switch {
		case lowerNil:
			return hi > 0
		case upperNil:
			return lo < 0
		}
		return lo < 0 || hi > 0
	default:
		switch {
		case lowerNil:
			return hi >= 0
		case upperNil:
			return lo <= 0
		}
		return lo <= 0 || hi >= 0
	}
}

func (c *ColumnCondition) isIn(value any) bool {
	for _, v := range c.in {
		switch {
		case IsNil(v) || IsNil(value):
			if IsNil(v) && IsNil(value) {
				return true
			}
		case c.cmp(value, v) == 0:
			return true
		}
	}
	return false
}

// Conditions holds the per-column conditions of a model. Together with the
// global predicate they form the effective inclusion predicate.
type Conditions[R, C comparable] struct {
	m          *Model[R, C]
	mu         sync.Mutex
	conditions map[C]*ColumnCondition
	order      []C
	batching   atomic.Bool
	changed    event.Event[struct{}]
}

func newConditions[R, C comparable](m *Model[R, C]) *Conditions[R, C] {
	return &Conditions[R, C]{m: m, conditions: make(map[C]*ColumnCondition)}
}

// Condition returns the condition of column, creating it on first use.
func (cs *Conditions[R, C]) Condition(column C) (*ColumnCondition, error) {
	if !cs.m.columns.Contains(column) {
		return nil, fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.conditions[column]; ok {
		return c, nil
	}
	c := newColumnCondition(cs.m.columns.Comparator(column))
	c.changed.Subscribe(func(struct{}) {
		if !cs.batching.Load() {
			cs.changed.Fire(struct{}{})
		}
	})
	cs.conditions[column] = c
	cs.order = append(cs.order, column)
	return c, nil
}

// Enabled returns the columns whose condition is enabled, in creation order.
func (cs *Conditions[R, C]) Enabled() []C {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	var out []C
	for _, id := range cs.order {
		if cs.conditions[id].Enabled() {
			out = append(out, id)
		}
	}
	return out
}

// Clear resets every condition and re-filters once.
func (cs *Conditions[R, C]) Clear() {
	cs.mu.Lock()
	all := make([]*ColumnCondition, 0, len(cs.order))
	for _, id := range cs.order {
		all = append(all, cs.conditions[id])
	}
	cs.mu.Unlock()

	cs.batching.Store(true)
	for _, c := range all {
		c.Clear()
	}
	cs.batching.Store(false)
	cs.changed.Fire(struct{}{})
}

// Changed fires after any condition changes.
func (cs *Conditions[R, C]) Changed() event.Observer[struct{}] { return &cs.changed }

// accepts reports whether row passes every enabled condition.
func (cs *Conditions[R, C]) accepts(row R) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, id := range cs.order {
		if !cs.conditions[id].Accepts(cs.m.columns.Value(row, id)) {
			return false
		}
	}
	return true
}

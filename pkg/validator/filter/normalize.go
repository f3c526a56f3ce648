package filter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"katydid-common-crud/pkg/validator/schema"
)

var (
	// ErrInvalidRange between 的下界大于上界
	ErrInvalidRange = errors.New("invalid range")

	// ErrMalformedFilter 过滤对象不是"恰好一个操作符键"的形式
	ErrMalformedFilter = errors.New("malformed filter")

	// ErrUnknownOperator 未知操作符
	ErrUnknownOperator = errors.New("unknown filter operator")
)

// Normalize 把一个已校验的过滤字段值转换为谓词
//
// 普通标量 → Eq；过滤对象 → 对应操作符的谓词；已经是谓词的值原样返回。
// between 的下界大于上界时返回 ErrInvalidRange，不会自动交换。
func Normalize(value any) (Predicate, error) {
	switch v := value.(type) {
	case Predicate:
		return v, nil
	case map[string]any:
		return normalizeObject(v)
	default:
		return Eq{Value: value}, nil
	}
}

func normalizeObject(obj map[string]any) (Predicate, error) {
	if len(obj) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one operator, got %d", ErrMalformedFilter, len(obj))
	}

	for op, operand := range obj {
		switch op {
		case schema.OpLike, schema.OpNotLike, schema.OpILike, schema.OpNotILike:
			pattern, err := stringOperand(op, operand)
			if err != nil {
				return nil, err
			}
			return Like{
				Pattern:         pattern,
				CaseInsensitive: op == schema.OpILike || op == schema.OpNotILike,
				Negated:         op == schema.OpNotLike || op == schema.OpNotILike,
			}, nil

		case schema.OpRegexp, schema.OpNotRegexp, schema.OpIRegexp, schema.OpNotIRegexp:
			pattern, err := stringOperand(op, operand)
			if err != nil {
				return nil, err
			}
			return Regexp{
				Pattern:         pattern,
				CaseInsensitive: op == schema.OpIRegexp || op == schema.OpNotIRegexp,
				Negated:         op == schema.OpNotRegexp || op == schema.OpNotIRegexp,
			}, nil

		case schema.OpStartsWith:
			s, err := stringOperand(op, operand)
			return StartsWith{Value: s}, err
		case schema.OpEndsWith:
			s, err := stringOperand(op, operand)
			return EndsWith{Value: s}, err
		case schema.OpSubstring:
			s, err := stringOperand(op, operand)
			return Substring{Value: s}, err

		case schema.OpGt:
			return Compare{Op: Gt, Value: operand}, nil
		case schema.OpGte:
			return Compare{Op: Gte, Value: operand}, nil
		case schema.OpLt:
			return Compare{Op: Lt, Value: operand}, nil
		case schema.OpLte:
			return Compare{Op: Lte, Value: operand}, nil

		case schema.OpBetween:
			return normalizeBetween(operand)

		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
		}
	}
	return nil, ErrMalformedFilter
}

func stringOperand(op string, operand any) (string, error) {
	s, ok := operand.(string)
	if !ok {
		return "", fmt.Errorf("%w: operator %q expects a string, got %T", ErrMalformedFilter, op, operand)
	}
	return s, nil
}

func normalizeBetween(operand any) (Predicate, error) {
	bounds, ok := operand.([]any)
	if !ok || len(bounds) != 2 {
		return nil, fmt.Errorf("%w: between expects exactly two bounds", ErrMalformedFilter)
	}
	low, high := bounds[0], bounds[1]

	cmp, ok := compare(low, high)
	if !ok {
		return nil, fmt.Errorf("%w: between bounds %v and %v are not comparable", ErrMalformedFilter, low, high)
	}
	if cmp > 0 {
		return nil, fmt.Errorf("%w: lower bound %v is greater than upper bound %v", ErrInvalidRange, low, high)
	}
	return Between{Low: low, High: high}, nil
}

// compare 比较两个同类值：-1 / 0 / 1；类型不可比较时 ok 为 false
func compare(a, b any) (int, bool) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}

	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}

	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// Raw 把谓词还原为过滤字段的原始形式，Normalize(Raw(p)) 与 p 等价
func Raw(p Predicate) any {
	switch v := p.(type) {
	case Eq:
		return v.Value
	case Like:
		op := schema.OpLike
		switch {
		case v.CaseInsensitive && v.Negated:
			op = schema.OpNotILike
		case v.CaseInsensitive:
			op = schema.OpILike
		case v.Negated:
			op = schema.OpNotLike
		}
		return map[string]any{op: v.Pattern}
	case Regexp:
		op := schema.OpRegexp
		switch {
		case v.CaseInsensitive && v.Negated:
			op = schema.OpNotIRegexp
		case v.CaseInsensitive:
			op = schema.OpIRegexp
		case v.Negated:
			op = schema.OpNotRegexp
		}
		return map[string]any{op: v.Pattern}
	case StartsWith:
		return map[string]any{schema.OpStartsWith: v.Value}
	case EndsWith:
		return map[string]any{schema.OpEndsWith: v.Value}
	case Substring:
		return map[string]any{schema.OpSubstring: v.Value}
	case Compare:
		return map[string]any{string(v.Op): v.Value}
	case Between:
		return map[string]any{schema.OpBetween: []any{v.Low, v.High}}
	default:
		return p
	}
}

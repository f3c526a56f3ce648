package filter

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/schema"
)

func TestNormalize(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  Predicate
	}{
		{"普通字符串", "foo", Eq{Value: "foo"}},
		{"普通数字", int64(12), Eq{Value: int64(12)}},
		{"普通日期", day, Eq{Value: day}},
		{"like", map[string]any{"like": "%foo%"}, Like{Pattern: "%foo%"}},
		{"notLike", map[string]any{"notLike": "%foo%"}, Like{Pattern: "%foo%", Negated: true}},
		{"iLike", map[string]any{"iLike": "%foo%"}, Like{Pattern: "%foo%", CaseInsensitive: true}},
		{"notILike", map[string]any{"notILike": "%foo%"}, Like{Pattern: "%foo%", CaseInsensitive: true, Negated: true}},
		{"startsWith", map[string]any{"startsWith": "ab"}, StartsWith{Value: "ab"}},
		{"endsWith", map[string]any{"endsWith": "yz"}, EndsWith{Value: "yz"}},
		{"substring", map[string]any{"substring": "mid"}, Substring{Value: "mid"}},
		{"regexp", map[string]any{"regexp": "^a"}, Regexp{Pattern: "^a"}},
		{"notRegexp", map[string]any{"notRegexp": "^a"}, Regexp{Pattern: "^a", Negated: true}},
		{"iRegexp", map[string]any{"iRegexp": "^a"}, Regexp{Pattern: "^a", CaseInsensitive: true}},
		{"notIRegexp", map[string]any{"notIRegexp": "^a"}, Regexp{Pattern: "^a", CaseInsensitive: true, Negated: true}},
		{"gt", map[string]any{"gt": float64(5)}, Compare{Op: Gt, Value: float64(5)}},
		{"gte", map[string]any{"gte": float64(5)}, Compare{Op: Gte, Value: float64(5)}},
		{"lt", map[string]any{"lt": day}, Compare{Op: Lt, Value: day}},
		{"lte", map[string]any{"lte": day}, Compare{Op: Lte, Value: day}},
		{"between_有序", map[string]any{"between": []any{float64(5), float64(10)}}, Between{Low: float64(5), High: float64(10)}},
		{"between_相等", map[string]any{"between": []any{int64(5), int64(5)}}, Between{Low: int64(5), High: int64(5)}},
		{"between_日期", map[string]any{"between": []any{day, day.AddDate(0, 1, 0)}}, Between{Low: day, High: day.AddDate(0, 1, 0)}},
		{"谓词原样返回", Compare{Op: Gt, Value: 1}, Compare{Op: Gt, Value: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Errors(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   any
		wantErr error
	}{
		{"between_倒序", map[string]any{"between": []any{float64(10), float64(5)}}, ErrInvalidRange},
		{"between_日期倒序", map[string]any{"between": []any{day, day.AddDate(0, 0, -1)}}, ErrInvalidRange},
		{"between_长度错误", map[string]any{"between": []any{1}}, ErrMalformedFilter},
		{"between_类型不一致", map[string]any{"between": []any{day, 1}}, ErrMalformedFilter},
		{"多个操作符", map[string]any{"gt": 1, "lt": 2}, ErrMalformedFilter},
		{"空对象", map[string]any{}, ErrMalformedFilter},
		{"未知操作符", map[string]any{"eq": 1}, ErrUnknownOperator},
		{"文本操作数不是字符串", map[string]any{"like": 1}, ErrMalformedFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Nil(t, got)
		})
	}
}

func TestRaw_RoundTrip(t *testing.T) {
	predicates := []Predicate{
		Eq{Value: "x"},
		Like{Pattern: "%a"},
		Like{Pattern: "%a", Negated: true},
		Like{Pattern: "%a", CaseInsensitive: true},
		Like{Pattern: "%a", CaseInsensitive: true, Negated: true},
		Regexp{Pattern: "^a", CaseInsensitive: true},
		Regexp{Pattern: "^a", Negated: true},
		StartsWith{Value: "a"},
		EndsWith{Value: "z"},
		Substring{Value: "m"},
		Compare{Op: Lte, Value: int64(3)},
		Between{Low: int64(1), High: int64(2)},
	}
	for _, p := range predicates {
		t.Run(p.Kind(), func(t *testing.T) {
			got, err := Normalize(Raw(p))
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestPredicate_JSON(t *testing.T) {
	tests := []struct {
		name string
		p    Predicate
		want string
	}{
		{"eq", Eq{Value: 12}, `{"op":"eq","value":12}`},
		{"like", Like{Pattern: "%a%", CaseInsensitive: true}, `{"caseInsensitive":true,"negated":false,"op":"like","pattern":"%a%"}`},
		{"gt", Compare{Op: Gt, Value: 5}, `{"op":"gt","value":5}`},
		{"between", Between{Low: 1, High: 2}, `{"high":2,"low":1,"op":"between"}`},
		{"substring", Substring{Value: "m"}, `{"op":"substring","value":"m"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.p)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestApply(t *testing.T) {
	node := schema.Query(schema.Fields{
		"name":       schema.TextFilter(schema.TextOptions{Optional: true}),
		"level":      schema.NumberFilter(schema.NumberOptions{Optional: true, Integer: true}),
		"limit":      schema.Limit(schema.PageOptions{}),
		"attributes": schema.Attributes([]string{"id", "name"}, schema.ListOptions{}),
	}, schema.ObjectOptions{Empty: true})

	ctx := core.NewValidationContext()
	ctx.Push("query")
	value := map[string]any{
		"name":       map[string]any{"like": "%foo%"},
		"level":      int64(3),
		"limit":      int64(5),
		"attributes": []any{"id"},
	}

	out, ok := Apply(node, value, ctx)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"name":       Like{Pattern: "%foo%"},
		"level":      Eq{Value: int64(3)},
		"limit":      int64(5),
		"attributes": []any{"id"},
	}, out)

	// 不修改输入
	assert.Equal(t, map[string]any{"like": "%foo%"}, value["name"])

	// 再次 Apply 结果不变
	again, ok := Apply(node, out, ctx)
	require.True(t, ok)
	assert.Equal(t, out, again)
}

func TestApply_InvalidRange(t *testing.T) {
	node := schema.Query(schema.Fields{
		"level": schema.NumberFilter(schema.NumberOptions{Optional: true}),
	}, schema.ObjectOptions{Empty: true})

	ctx := core.NewValidationContext()
	ctx.Push("query")
	_, ok := Apply(node, map[string]any{
		"level": map[string]any{"between": []any{float64(10), float64(5)}},
	}, ctx)
	require.False(t, ok)
	require.Len(t, ctx.Errors, 1)
	assert.Equal(t, core.CodeInvalidRange, ctx.Errors[0].Code)
	assert.Equal(t, "query.level.between", ctx.Errors[0].Path)
}

func TestApply_Nested(t *testing.T) {
	node := schema.Body(schema.Fields{
		"items": schema.ArrayOf(schema.ObjectOf(schema.Fields{
			"price": schema.NumberFilter(schema.NumberOptions{}),
		}, schema.ObjectOptions{}), schema.ArrayOptions{}),
	}, schema.ObjectOptions{})

	ctx := core.NewValidationContext()
	out, ok := Apply(node, map[string]any{
		"items": []any{
			map[string]any{"price": float64(1)},
			map[string]any{"price": map[string]any{"gte": float64(2)}},
			map[string]any{"price": map[string]any{"between": []any{float64(9), float64(1)}}},
		},
	}, ctx)
	require.False(t, ok)
	assert.Equal(t, "items[2].price.between", ctx.Errors[0].Path)

	items := out.(map[string]any)["items"].([]any)
	assert.Equal(t, Eq{Value: float64(1)}, items[0].(map[string]any)["price"])
	assert.Equal(t, Compare{Op: Gte, Value: float64(2)}, items[1].(map[string]any)["price"])
}

package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katydid-common-crud/pkg/validator/core"
)

// construct 捕获构建期断言
func construct(fn func()) (err error) {
	defer core.RecoverConstruction(&err)
	fn()
	return nil
}

func f64(v float64) *float64 { return &v }

func TestBuilders_ConstructionErrors(t *testing.T) {
	tests := []struct {
		name    string
		build   func()
		builder string
	}{
		{"Text_min大于max", func() { Text(TextOptions{Min: 10, Max: 5}) }, "Text"},
		{"Text_非法正则", func() { Text(TextOptions{Pattern: "(["}) }, "Text"},
		{"Code_非法正则", func() { Code(CodeOptions{Pattern: "(["}) }, "Code"},
		{"Number_min大于max", func() { Number(NumberOptions{Min: f64(5), Max: f64(1)}) }, "NewLeaf"},
		{"Number_非整数缺省值", func() { Integer(NumberOptions{Default: f64(1.5)}) }, "Number"},
		{"EnumOf_空枚举", func() { EnumOf(nil, EnumOptions{}) }, "EnumOf"},
		{"EnumOf_缺省值不在枚举内", func() {
			def := "x"
			EnumOf([]string{"a", "b"}, EnumOptions{Default: &def})
		}, "EnumOf"},
		{"ArrayOf_min大于max", func() { ArrayOf(Text(TextOptions{}), ArrayOptions{MinLen: 3, MaxLen: 2}) }, "NewArray"},
		{"NewArray_单值包装嵌套数组", func() {
			ArrayOf(ArrayOf(Text(TextOptions{}), ArrayOptions{}), ArrayOptions{Single: true})
		}, "NewArray"},
		{"NewAlternative_形状重叠", func() { NewAlternative(Text(TextOptions{}), Code(CodeOptions{})) }, "NewAlternative"},
		{"NewAlternative_强制转换数字与字符串重叠", func() {
			NewAlternative(Number(NumberOptions{}), Text(TextOptions{}))
		}, "NewAlternative"},
		{"NewObject_空字段名", func() { NewObject(Fields{"": Text(TextOptions{})}, ObjectPolicy{}) }, "NewObject"},
		{"NewObject_nil字段", func() { NewObject(Fields{"a": nil}, ObjectPolicy{}) }, "NewObject"},
		{"Limit_缺省值超过上限", func() {
			def := int64(200)
			Limit(PageOptions{Default: &def})
		}, "Limit"},
		{"Attributes_空列表", func() { Attributes(nil, ListOptions{}) }, "Attributes"},
		{"SortBy_空列表", func() { SortBy(nil, ListOptions{}) }, "SortBy"},
		{"NewLeaf_split用于数字", func() {
			NewLeaf(KindNumber, LeafConstraints{Split: &SplitSpec{Delimiter: ","}})
		}, "NewLeaf"},
		{"UUID_不支持的版本", func() { UUID(UUIDOptions{Version: 9}) }, "NewLeaf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := construct(tt.build)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConstruction))

			var ce *core.ConstructionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.builder, ce.Builder)
		})
	}
}

func TestBuilders_Defaults(t *testing.T) {
	limit := Limit(PageOptions{})
	assert.Equal(t, int64(10), limit.Constraints.Default)
	assert.True(t, limit.Constraints.Optional)
	assert.Equal(t, float64(100), *limit.Constraints.Max)

	offset := Offset(PageOptions{Required: true})
	assert.Equal(t, int64(0), offset.Constraints.Default)
	assert.False(t, offset.Constraints.Optional)
	assert.Nil(t, offset.Constraints.Max)

	code := Code(CodeOptions{})
	assert.Equal(t, DefaultCode, code.Constraints.Default)
	assert.True(t, code.Constraints.Trim)

	partial := Code(CodeOptions{NoDefault: true})
	assert.False(t, partial.Constraints.HasDefault)

	order := OrderBy(OrderByOptions{})
	assert.Equal(t, OrderAsc, order.Constraints.Default)

	uuids := UUIDArray(UUIDOptions{Optional: true}, ArrayOptions{})
	assert.Equal(t, 100, uuids.Constraints.MaxLen)
	assert.False(t, uuids.Item.(*Leaf).Constraints.Optional)

	date := Date(DateOptions{Min: ptrTime(time.UnixMilli(1000))})
	assert.Equal(t, float64(1000), *date.Constraints.Min)
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestShapes(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want Shape
	}{
		{"文本", Text(TextOptions{}), ShapeString},
		{"强制转换数字", Number(NumberOptions{}), ShapeNumber | ShapeString},
		{"严格数字", Number(NumberOptions{NoCoerce: true}), ShapeNumber},
		{"布尔", Boolean(BooleanOptions{}), ShapeBoolean | ShapeString},
		{"日期", Date(DateOptions{}), ShapeDate | ShapeString},
		{"对象", Query(Fields{}, ObjectOptions{}), ShapeObject},
		{"数组", ArrayOf(Text(TextOptions{}), ArrayOptions{}), ShapeArray},
		{"单值数组", ArrayOf(Text(TextOptions{}), ArrayOptions{Single: true}), ShapeArray | ShapeString},
		{"投影", Attributes([]string{"id"}, ListOptions{}), ShapeString | ShapeArray},
		{"文本过滤", TextFilter(TextOptions{}), ShapeString | ShapeObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.Shapes())
		})
	}
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "none", Shape(0).String())
	assert.Equal(t, "string|object", (ShapeString | ShapeObject).String())
}

func TestFilterBuilders(t *testing.T) {
	text := TextFilter(TextOptions{Optional: true, Nullable: true})
	assert.Equal(t, FilterText, text.Filter)
	obj := text.Fallback.(*Object)
	assert.Equal(t, 1, obj.Policy.MaxKeys)
	assert.Equal(t, Reject, obj.Policy.UnknownKeys)
	assert.True(t, obj.Policy.Nullable)
	assert.Len(t, obj.Fields, len(TextOperators))
	// 操作数本身不可为 null
	assert.False(t, obj.Fields[OpLike].(*Leaf).Constraints.Nullable)

	number := NumberFilter(NumberOptions{Integer: true})
	assert.Equal(t, FilterNumber, number.Filter)
	between := number.Fallback.(*Object).Fields[OpBetween].(*Array)
	assert.Equal(t, 2, between.Constraints.MinLen)
	assert.Equal(t, 2, between.Constraints.MaxLen)
	assert.True(t, between.Item.(*Leaf).Constraints.Integer)

	date := DateFilter(DateOptions{})
	assert.Equal(t, FilterDate, date.Filter)
	assert.ElementsMatch(t, RangeOperators, date.Fallback.(*Object).Keys())
}

func TestNewObject_KeysSorted(t *testing.T) {
	obj := NewObject(Fields{"b": Text(TextOptions{}), "a": Text(TextOptions{}), "c": Text(TextOptions{})}, ObjectPolicy{})
	assert.Equal(t, []string{"a", "b", "c"}, obj.Keys())
}

func TestNewLeaf_Immutable(t *testing.T) {
	enum := []string{"a", "b"}
	leaf := NewLeaf(KindString, LeafConstraints{Enum: enum})
	enum[0] = "z"
	assert.Equal(t, []string{"a", "b"}, leaf.Constraints.Enum)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "string", Describe(Text(TextOptions{})))
	assert.Equal(t, "array of number", Describe(ArrayOf(Number(NumberOptions{}), ArrayOptions{})))
	assert.Equal(t, "string or array of string", Describe(Attributes([]string{"id"}, ListOptions{})))
	assert.Equal(t, "object(2 fields)", Describe(Query(Fields{"a": Forbidden(), "b": Forbidden()}, ObjectOptions{})))
}

func TestScalarKind(t *testing.T) {
	tests := []struct {
		name string
		leaf *Leaf
		kind ScalarKind
		text string
	}{
		{"文本", Text(TextOptions{}), KindString, "string"},
		{"数字", Number(NumberOptions{}), KindNumber, "number"},
		{"整数", Integer(NumberOptions{}), KindNumber, "number"},
		{"布尔", Boolean(BooleanOptions{}), KindBoolean, "boolean"},
		{"日期", Date(DateOptions{}), KindDate, "date"},
		{"禁止字段", Forbidden(), KindString, "string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.leaf.Kind)
			assert.Equal(t, tt.text, tt.leaf.Kind.String())
		})
	}
	assert.Equal(t, "unknown", ScalarKind(99).String())
}

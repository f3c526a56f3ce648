package validator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/filter"
	"katydid-common-crud/pkg/validator/schema"
)

const validUUID = "6f1c2a4e-8b3d-4c5e-9f7a-1b2c3d4e5f60"

// listSchemas 典型的列表接口
func listSchemas() RequestSchemas {
	return RequestSchemas{
		Query: schema.Query(schema.Fields{
			"name":       schema.TextFilter(schema.TextOptions{Optional: true}),
			"level":      schema.NumberFilter(schema.NumberOptions{Optional: true, Integer: true}),
			"createdAt":  schema.DateFilter(schema.DateOptions{Optional: true}),
			"kind":       schema.EnumOf([]string{"province", "city"}, schema.EnumOptions{Optional: true, Split: true}),
			"attributes": schema.Attributes([]string{"id", "name"}, schema.ListOptions{}),
			"limit":      schema.Limit(schema.PageOptions{}),
			"offset":     schema.Offset(schema.PageOptions{}),
			"orderBy":    schema.OrderBy(schema.OrderByOptions{}),
		}, schema.ObjectOptions{Max: 10, Empty: true}),
	}
}

// updateSchemas 典型的更新接口
func updateSchemas() RequestSchemas {
	return RequestSchemas{
		Query: schema.Query(schema.Fields{}, schema.ObjectOptions{Empty: true}),
		Body: schema.Body(schema.Fields{
			"id":      schema.Forbidden(),
			"name":    schema.Text(schema.TextOptions{Optional: true, Max: 8}),
			"code":    schema.Code(schema.CodeOptions{Optional: true}),
			"enabled": schema.Boolean(schema.BooleanOptions{Optional: true}),
		}, schema.ObjectOptions{}),
		Params: schema.Params(schema.Fields{"id": schema.UUID(schema.UUIDOptions{})}, schema.ObjectOptions{}),
	}
}

func errorPaths(errs []*core.FieldError) []string {
	out := make([]string, len(errs))
	for i, fe := range errs {
		out[i] = fe.Path
	}
	return out
}

func TestValidateRequest_EndToEnd(t *testing.T) {
	schemas := RequestSchemas{
		Query: schema.Query(schema.Fields{
			"name":   schema.TextFilter(schema.TextOptions{Optional: true}),
			"limit":  schema.Limit(schema.PageOptions{}),
			"offset": schema.Offset(schema.PageOptions{}),
		}, schema.ObjectOptions{Max: 10}),
	}

	sanitized, errs := New().ValidateRequest(schemas, Envelope{
		Query: map[string]any{
			"name":  map[string]any{"like": "%foo%"},
			"limit": "5",
		},
	})
	require.Empty(t, errs)
	assert.Equal(t, map[string]any{
		"name":   filter.Like{Pattern: "%foo%"},
		"limit":  int64(5),
		"offset": int64(0),
	}, sanitized.Query)
	// 未声明 schema 的分段原样透传（nil 视为空对象）
	assert.Equal(t, map[string]any{}, sanitized.Body)
	assert.Equal(t, map[string]any{}, sanitized.Params)
}

func TestValidateRequest_Aggregation(t *testing.T) {
	_, errs := New().ValidateRequest(updateSchemas(), Envelope{
		Query:  map[string]any{"page": "1"},
		Body:   map[string]any{"id": validUUID, "name": "much too long", "enabled": "maybe"},
		Params: map[string]any{"id": "42"},
	})

	assert.Equal(t, []string{
		"query.page",
		"body.enabled",
		"body.id",
		"body.name",
		"params.id",
	}, errorPaths(errs))
	assert.Equal(t, core.CodeUnknownKey, errs[0].Code)
	assert.Equal(t, core.CodeTypeMismatch, errs[1].Code)
	assert.Equal(t, core.CodeForbiddenField, errs[2].Code)
	assert.Equal(t, core.CodeOutOfRange, errs[3].Code)
	assert.Equal(t, core.CodeOutOfRange, errs[4].Code)
}

func TestValidateRequest_AggregationWithRange(t *testing.T) {
	tests := []struct {
		name  string
		query map[string]any
		paths []string
		codes []core.ErrorCode
	}{
		{
			name:  "区间颠倒与分页越界",
			query: map[string]any{"level": map[string]any{"between": []any{"10", "5"}}, "limit": "500"},
			paths: []string{"query.level.between", "query.limit"},
			codes: []core.ErrorCode{core.CodeInvalidRange, core.CodeOutOfRange},
		},
		{
			name: "区间颠倒与未知键",
			query: map[string]any{
				"createdAt": map[string]any{"between": []any{"2024-02-01", "2024-01-01"}},
				"foo":       "bar",
			},
			paths: []string{"query.foo", "query.createdAt.between"},
			codes: []core.ErrorCode{core.CodeUnknownKey, core.CodeInvalidRange},
		},
		{
			name:  "两个区间同时颠倒",
			query: map[string]any{"level": map[string]any{"between": []any{3, 1}}, "createdAt": map[string]any{"between": []any{"2024-02-01", "2024-01-01"}}},
			paths: []string{"query.createdAt.between", "query.level.between"},
			codes: []core.ErrorCode{core.CodeInvalidRange, core.CodeInvalidRange},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := New().ValidateRequest(listSchemas(), Envelope{Query: tt.query})
			assert.Equal(t, tt.paths, errorPaths(errs))
			codes := make([]core.ErrorCode, len(errs))
			for i, fe := range errs {
				codes[i] = fe.Code
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestValidateRequest_IntegerOverflow(t *testing.T) {
	_, errs := New().ValidateRequest(listSchemas(), Envelope{Query: map[string]any{
		"offset": "1e19",
		"level":  map[string]any{"gte": "-1e19"},
	}})
	assert.Equal(t, []string{"query.level.gte", "query.offset"}, errorPaths(errs))
	for _, fe := range errs {
		assert.Equal(t, core.CodeOutOfRange, fe.Code)
	}
}

func TestValidateRequest_Idempotent(t *testing.T) {
	tests := []struct {
		name    string
		schemas RequestSchemas
		env     Envelope
	}{
		{"列表查询", listSchemas(), Envelope{Query: map[string]any{
			"name":       map[string]any{"iLike": "%a%"},
			"level":      map[string]any{"between": []any{"1", "3"}},
			"createdAt":  map[string]any{"gte": "2024-01-01"},
			"kind":       "province, city",
			"attributes": "id,name",
			"limit":      "20",
		}}},
		{"列表查询_普通值", listSchemas(), Envelope{Query: map[string]any{
			"name":      "foo",
			"level":     "2",
			"createdAt": "2024-01-01T08:00:00Z",
			"orderBy":   "desc",
		}}},
		{"更新", updateSchemas(), Envelope{
			Body:   map[string]any{"name": " ab ", "enabled": "false"},
			Params: map[string]any{"id": validUUID},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			first, errs := v.ValidateRequest(tt.schemas, tt.env)
			require.Empty(t, errs)

			second, errs := v.ValidateRequest(tt.schemas, Envelope{
				Query:  first.Query,
				Body:   first.Body,
				Params: first.Params,
			})
			require.Empty(t, errs)
			assert.Equal(t, first, second)
		})
	}
}

func TestValidateRequest_Coercion(t *testing.T) {
	schemas := RequestSchemas{Query: schema.Query(schema.Fields{
		"n": schema.Number(schema.NumberOptions{}),
	}, schema.ObjectOptions{})}

	sanitized, errs := New().ValidateRequest(schemas, Envelope{Query: map[string]any{"n": "42"}})
	require.Empty(t, errs)
	assert.Equal(t, float64(42), sanitized.Query["n"])

	_, errs = New().ValidateRequest(schemas, Envelope{Query: map[string]any{"n": "abc"}})
	require.Len(t, errs, 1)
	assert.Equal(t, core.CodeTypeMismatch, errs[0].Code)
	assert.Equal(t, "query.n", errs[0].Path)
}

func TestValidateRequest_AlternativeCommit(t *testing.T) {
	schemas := RequestSchemas{Query: schema.Query(schema.Fields{
		"level": schema.NumberFilter(schema.NumberOptions{Optional: true}),
	}, schema.ObjectOptions{Empty: true})}

	tests := []struct {
		name     string
		input    any
		want     filter.Predicate
		wantPath string
	}{
		{"过滤对象", map[string]any{"gt": float64(5)}, filter.Compare{Op: filter.Gt, Value: float64(5)}, ""},
		{"普通值", float64(12), filter.Eq{Value: float64(12)}, ""},
		{"操作数非法不回退", map[string]any{"gt": "x"}, nil, "query.level.gt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sanitized, errs := New().ValidateRequest(schemas, Envelope{Query: map[string]any{"level": tt.input}})
			if tt.wantPath != "" {
				require.Len(t, errs, 1)
				assert.Equal(t, tt.wantPath, errs[0].Path)
				assert.Nil(t, sanitized)
				return
			}
			require.Empty(t, errs)
			assert.Equal(t, tt.want, sanitized.Query["level"])
		})
	}
}

func TestValidateRequest_Between(t *testing.T) {
	schemas := listSchemas()

	_, errs := New().ValidateRequest(schemas, Envelope{Query: map[string]any{
		"level": map[string]any{"between": []any{10, 5}},
	}})
	require.Len(t, errs, 1)
	assert.Equal(t, core.CodeInvalidRange, errs[0].Code)
	assert.Equal(t, "query.level.between", errs[0].Path)

	sanitized, errs := New().ValidateRequest(schemas, Envelope{Query: map[string]any{
		"level": map[string]any{"between": []any{5, 10}},
	}})
	require.Empty(t, errs)
	assert.Equal(t, filter.Between{Low: int64(5), High: int64(10)}, sanitized.Query["level"])

	low := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sanitized, errs = New().ValidateRequest(schemas, Envelope{Query: map[string]any{
		"createdAt": map[string]any{"between": []any{"2024-01-01", "2024-01-01"}},
	}})
	require.Empty(t, errs)
	between := sanitized.Query["createdAt"].(filter.Between)
	assert.True(t, low.Equal(between.Low.(time.Time)))
	assert.True(t, low.Equal(between.High.(time.Time)))
}

func TestValidateRequest_UnknownKey(t *testing.T) {
	_, errs := New().ValidateRequest(listSchemas(), Envelope{Query: map[string]any{
		"foo":   "bar",
		"limit": "abc",
	}})
	require.Len(t, errs, 2)
	assert.Equal(t, "query.foo", errs[0].Path)
	assert.Equal(t, core.CodeUnknownKey, errs[0].Code)
	// 其余声明字段照常校验
	assert.Equal(t, "query.limit", errs[1].Path)
	assert.Equal(t, core.CodeTypeMismatch, errs[1].Code)
}

func TestValidateRequest_ListSplitting(t *testing.T) {
	sanitized, errs := New().ValidateRequest(listSchemas(), Envelope{Query: map[string]any{
		"attributes": "id, name",
	}})
	require.Empty(t, errs)
	assert.Equal(t, []any{"id", "name"}, sanitized.Query["attributes"])

	// 重复的查询键
	sanitized, errs = New().ValidateRequest(listSchemas(), Envelope{Query: map[string]any{
		"attributes": []string{"id", "name"},
	}})
	require.Empty(t, errs)
	assert.Equal(t, []any{"id", "name"}, sanitized.Query["attributes"])

	_, errs = New().ValidateRequest(listSchemas(), Envelope{Query: map[string]any{
		"attributes": "id,bogus",
	}})
	require.Len(t, errs, 1)
	assert.Equal(t, core.CodeOutOfRange, errs[0].Code)
	assert.Contains(t, errs[0].Message, "bogus")
}

func TestValidateRequest_DefaultSubstitution(t *testing.T) {
	tests := []struct {
		name     string
		query    map[string]any
		want     any
		wantCode core.ErrorCode
	}{
		{"缺失取缺省值", map[string]any{}, int64(10), ""},
		{"字符串转换", map[string]any{"limit": "25"}, int64(25), ""},
		{"超过上限", map[string]any{"limit": "500"}, nil, core.CodeOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sanitized, errs := New().ValidateRequest(listSchemas(), Envelope{Query: tt.query})
			if tt.wantCode != "" {
				require.Len(t, errs, 1)
				assert.Equal(t, tt.wantCode, errs[0].Code)
				return
			}
			require.Empty(t, errs)
			assert.Equal(t, tt.want, sanitized.Query["limit"])
			assert.Equal(t, "asc", sanitized.Query["orderBy"])
		})
	}
}

func TestValidateRequest_Deny(t *testing.T) {
	for _, value := range []any{validUUID, "not-a-uuid", nil, 12} {
		_, errs := New().ValidateRequest(updateSchemas(), Envelope{
			Body:   map[string]any{"id": value},
			Params: map[string]any{"id": validUUID},
		})
		require.Len(t, errs, 1, "value %v", value)
		assert.Equal(t, core.CodeForbiddenField, errs[0].Code)
		assert.Equal(t, "body.id", errs[0].Path)
	}
}

func TestValidateRequest_NilSections(t *testing.T) {
	// 无 schema 的分段原样透传
	sanitized, errs := New().ValidateRequest(RequestSchemas{}, Envelope{
		Query: map[string]any{"anything": "goes"},
		Body:  []any{1, 2},
	})
	require.Empty(t, errs)
	assert.Equal(t, map[string]any{"anything": "goes"}, sanitized.Query)
	assert.Equal(t, []any{1, 2}, sanitized.Body)

	// body 不是对象
	_, errs = New().ValidateRequest(updateSchemas(), Envelope{
		Body:   "raw",
		Params: map[string]any{"id": validUUID},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "body", errs[0].Path)
	assert.Equal(t, core.CodeTypeMismatch, errs[0].Code)

	// 没有请求体视为空对象，更新时不允许
	_, errs = New().ValidateRequest(updateSchemas(), Envelope{Params: map[string]any{"id": validUUID}})
	require.Len(t, errs, 1)
	assert.Equal(t, core.CodeEmptyNotAllowed, errs[0].Code)
}

func TestValidator_Validate(t *testing.T) {
	_, err := Default().Validate(updateSchemas(), Envelope{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	// body 与 params 都是空对象
	assert.Equal(t, 2, ve.Count())
	assert.Len(t, ve.ByCode(CodeEmptyNotAllowed), 2)

	sanitized, err := Default().Validate(updateSchemas(), Envelope{
		Body:   map[string]any{"name": "a"},
		Params: map[string]any{"id": validUUID},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "a", "code": schema.DefaultCode}, sanitized.Body)
}

func TestValidator_Logger(t *testing.T) {
	observed, logs := observer.New(zap.DebugLevel)
	v := New(WithLogger(zap.New(observed)), WithLogger(nil), WithEngine(nil))

	_, errs := v.ValidateRequest(updateSchemas(), Envelope{Body: map[string]any{"name": "a"}})
	require.Len(t, errs, 1)

	entries := logs.FilterMessage("request validation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "params", entries[0].ContextMap()["first"])
}

func TestValidator_Concurrent(t *testing.T) {
	schemas := listSchemas()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs := ValidateRequest(schemas, Envelope{Query: map[string]any{"limit": "5"}})
				assert.Empty(t, errs)
				return
			}
			_, errs := ValidateRequest(schemas, Envelope{Query: map[string]any{"limit": "x", "foo": 1}})
			assert.Len(t, errs, 2)
		}(i)
	}
	wg.Wait()
}

package resource

import (
	"fmt"
	"slices"
	"sort"

	"katydid-common-crud/pkg/validator"
	"katydid-common-crud/pkg/validator/core"
	"katydid-common-crud/pkg/validator/schema"
)

// defaultMaxQueryKeys list 场景 query 键数量的默认上限
const defaultMaxQueryKeys = 10

// Whitelist 外部提供的动态白名单，与声明中的属性/关联合并
type Whitelist struct {
	Columns      []string
	Associations []string
}

// Merge 合并两个白名单，去重并保持先后顺序
func (w Whitelist) Merge(other Whitelist) Whitelist {
	return Whitelist{
		Columns:      union(w.Columns, other.Columns),
		Associations: union(w.Associations, other.Associations),
	}
}

// BuildOptions 构建选项
type BuildOptions struct {
	// MaxQueryKeys 资源未声明时使用的 list query 键数量上限
	MaxQueryKeys int
	// Whitelists 按资源名提供的额外白名单
	Whitelists map[string]Whitelist
}

// Schemas 单个资源各场景的 schema
type Schemas map[validator.ValidateScene]validator.RequestSchemas

// BuildSchemas 为资源生成 list/get/create/update/delete 五个场景的 schema
//
// 构建期断言失败（如 min > max、非法正则）以 *core.ConstructionError 返回。
func BuildSchemas(res *Resource, opts BuildOptions) (out Schemas, err error) {
	defer core.RecoverConstruction(&err)

	if err := res.Validate(); err != nil {
		return nil, err
	}

	whitelist := Whitelist{Columns: res.Columns(), Associations: res.Associations}
	if extra, ok := opts.Whitelists[res.Name]; ok {
		whitelist = whitelist.Merge(extra)
	}

	maxKeys := res.MaxQueryKeys
	if maxKeys == 0 {
		maxKeys = opts.MaxQueryKeys
	}
	if maxKeys == 0 {
		maxKeys = defaultMaxQueryKeys
	}

	b := &builder{res: res, whitelist: whitelist}
	return Schemas{
		validator.SceneList: {
			Query:  schema.Query(b.listQuery(), schema.ObjectOptions{Max: maxKeys, Empty: true}),
			Body:   emptySection(),
			Params: emptySection(),
		},
		validator.SceneGet: {
			Query:  schema.Query(b.projectionQuery(), schema.ObjectOptions{Empty: true}),
			Body:   emptySection(),
			Params: b.idParams(),
		},
		validator.SceneCreate: {
			Query:  emptySection(),
			Body:   schema.Body(b.body(validator.SceneCreate), schema.ObjectOptions{}),
			Params: emptySection(),
		},
		validator.SceneUpdate: {
			Query:  emptySection(),
			Body:   schema.Body(b.body(validator.SceneUpdate), schema.ObjectOptions{}),
			Params: b.idParams(),
		},
		validator.SceneDelete: {
			Query:  emptySection(),
			Body:   emptySection(),
			Params: b.idParams(),
		},
	}, nil
}

// emptySection 不接受任何键的分段
func emptySection() *schema.Object {
	return schema.NewObject(schema.Fields{}, schema.ObjectPolicy{UnknownKeys: schema.Reject, EmptyAllowed: true})
}

type builder struct {
	res       *Resource
	whitelist Whitelist
}

// listQuery 过滤字段 + 分页 + 投影 + 排序
func (b *builder) listQuery() schema.Fields {
	fields := b.projectionQuery()
	fields["limit"] = schema.Limit(schema.PageOptions{})
	fields["offset"] = schema.Offset(schema.PageOptions{})
	fields["orderBy"] = schema.OrderBy(schema.OrderByOptions{})
	if sortable := b.sortColumns(); len(sortable) > 0 {
		fields["sortBy"] = schema.SortBy(sortable, schema.ListOptions{})
	}

	for i := range b.res.Attributes {
		attr := &b.res.Attributes[i]
		if _, reserved := fields[attr.Name]; reserved {
			continue
		}
		if attr.deniedIn(validator.SceneList) {
			fields[attr.Name] = schema.Forbidden()
			continue
		}
		fields[attr.Name] = queryNode(attr)
	}
	return fields
}

// projectionQuery attributes 与 include
func (b *builder) projectionQuery() schema.Fields {
	fields := schema.Fields{}
	if len(b.whitelist.Columns) > 0 {
		fields["attributes"] = schema.Attributes(b.whitelist.Columns, schema.ListOptions{})
	}
	if len(b.whitelist.Associations) > 0 {
		fields["include"] = schema.Include(b.whitelist.Associations, schema.ListOptions{})
	}
	return fields
}

func (b *builder) sortColumns() []string {
	var out []string
	for _, attr := range b.res.Attributes {
		if attr.sortable() && !attr.deniedIn(validator.SceneList) {
			out = append(out, attr.Name)
		}
	}
	return out
}

func (b *builder) idParams() *schema.Object {
	return schema.Params(schema.Fields{b.res.IDParam: schema.UUID(schema.UUIDOptions{})}, schema.ObjectOptions{})
}

// body create/update 的请求体字段
func (b *builder) body(scene validator.ValidateScene) schema.Fields {
	fields := make(schema.Fields, len(b.res.Attributes))
	for i := range b.res.Attributes {
		attr := &b.res.Attributes[i]
		if attr.deniedIn(scene) {
			fields[attr.Name] = schema.Forbidden()
			continue
		}
		fields[attr.Name] = valueNode(attr, !attr.requiredIn(scene), attr.Nullable, scene == validator.SceneUpdate)
	}
	return fields
}

// queryNode list 场景的单个属性：可选，不可为 null，可过滤类型使用过滤二选一
func queryNode(attr *Attribute) schema.Node {
	if !attr.filterable() {
		return valueNode(attr, true, false, true)
	}
	switch attr.Type {
	case TypeText, TypeEmail:
		return schema.TextFilter(schema.TextOptions{Optional: true, Trim: true, Max: maxLength(attr)})
	case TypeNumber, TypeInteger:
		return schema.NumberFilter(schema.NumberOptions{Optional: true, Integer: attr.Type == TypeInteger})
	case TypeDate:
		return schema.DateFilter(schema.DateOptions{Optional: true})
	case TypeEnum:
		return schema.EnumOf(attr.Values, schema.EnumOptions{Optional: true, Split: true})
	default:
		return valueNode(attr, true, false, true)
	}
}

// valueNode 属性的普通值 schema
//
// partial 为 true 时（更新）缺失字段保持缺失，不填充缺省值
func valueNode(attr *Attribute, optional, nullable, partial bool) schema.Node {
	switch attr.Type {
	case TypeUUID:
		return schema.UUID(schema.UUIDOptions{Optional: optional, Nullable: nullable})
	case TypeCode:
		return schema.Code(schema.CodeOptions{Optional: optional, Nullable: nullable, NoDefault: partial, Pattern: attr.Pattern})
	case TypeText:
		return schema.Text(schema.TextOptions{
			Optional: optional,
			Nullable: nullable,
			Trim:     true,
			Min:      minLength(attr),
			Max:      maxLength(attr),
			Pattern:  attr.Pattern,
		})
	case TypeEmail:
		return schema.Email(schema.TextOptions{Optional: optional, Nullable: nullable, Trim: true, Max: maxLength(attr)})
	case TypeNumber, TypeInteger:
		return schema.Number(schema.NumberOptions{
			Optional: optional,
			Nullable: nullable,
			Integer:  attr.Type == TypeInteger,
			Min:      attr.Min,
			Max:      attr.Max,
			NoCoerce: true,
		})
	case TypeBoolean:
		return schema.Boolean(schema.BooleanOptions{Optional: optional, Nullable: nullable})
	case TypeDate:
		return schema.Date(schema.DateOptions{Optional: optional, Nullable: nullable})
	case TypeEnum:
		return schema.EnumOf(attr.Values, schema.EnumOptions{Optional: optional, Nullable: nullable})
	default:
		panic(&core.ConstructionError{Builder: "resource.valueNode", Reason: fmt.Sprintf("unknown attribute type %q", attr.Type)})
	}
}

func minLength(attr *Attribute) int {
	if attr.Min == nil {
		return 0
	}
	return int(*attr.Min)
}

func maxLength(attr *Attribute) int {
	if attr.Max == nil {
		return 0
	}
	return int(*attr.Max)
}

// union 去重合并
func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, item := range b {
		if item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

// ============================================================================
// Registry
// ============================================================================

// Registry 所有资源的 schema，构建后只读
type Registry struct {
	resources map[string]*Resource
	schemas   map[string]Schemas
}

// Build 为声明文件中的所有资源生成 schema
func Build(file *File, opts BuildOptions) (*Registry, error) {
	r := &Registry{
		resources: make(map[string]*Resource, len(file.Resources)),
		schemas:   make(map[string]Schemas, len(file.Resources)),
	}
	for i := range file.Resources {
		res := &file.Resources[i]
		schemas, err := BuildSchemas(res, opts)
		if err != nil {
			return nil, fmt.Errorf("build resource %s: %w", res.Name, err)
		}
		r.resources[res.Name] = res
		r.schemas[res.Name] = schemas
	}
	return r, nil
}

// Names 资源名（已排序）
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resource 按名称查找资源
func (r *Registry) Resource(name string) (*Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Schemas 查找资源在某个场景的 schema
func (r *Registry) Schemas(name string, scene validator.ValidateScene) (validator.RequestSchemas, bool) {
	schemas, ok := r.schemas[name]
	if !ok {
		return validator.RequestSchemas{}, false
	}
	s, ok := schemas[scene]
	return s, ok
}

// Package jsonschema 把 schema 规则树导出为 JSON Schema (draft 2020-12) 文档，用于接口文档与离线校验
package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"katydid-common-crud/pkg/validator"
	"katydid-common-crud/pkg/validator/schema"
)

// Draft 导出文档声明的 $schema
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Document 导出根文档，附带 $schema 与可选的 $id
func Document(node schema.Node, id string) map[string]any {
	doc := Export(node)
	doc["$schema"] = Draft
	if id != "" {
		doc["$id"] = id
	}
	return doc
}

// Export 导出单个节点
//
// 导出的是原始输入的形状：开启强制转换的数字/布尔同时接受字符串，
// 日期导出为字符串，禁止字段导出为 false。
func Export(node schema.Node) map[string]any {
	switch n := node.(type) {
	case *schema.Leaf:
		return exportLeaf(n)
	case *schema.Object:
		return exportObject(n)
	case *schema.Array:
		return exportArray(n)
	case *schema.Alternative:
		return map[string]any{"anyOf": []any{Export(n.Primary), Export(n.Fallback)}}
	default:
		return map[string]any{}
	}
}

func exportLeaf(leaf *schema.Leaf) map[string]any {
	c := &leaf.Constraints
	out := map[string]any{}

	var types []any
	switch leaf.Kind {
	case schema.KindString:
		types = []any{"string"}
		if c.Split == nil {
			if c.Min != nil {
				out["minLength"] = int(*c.Min)
			}
			if c.Max != nil {
				out["maxLength"] = int(*c.Max)
			}
			if c.Pattern != nil {
				out["pattern"] = c.Pattern.String()
			}
			if len(c.Enum) > 0 {
				out["enum"] = stringsToAny(c.Enum)
			}
		} else {
			out["description"] = fmt.Sprintf("%q separated list", c.Split.Delimiter)
		}
		if c.UUIDVersion != 0 {
			out["format"] = "uuid"
		}
		if c.Format == "email" {
			out["format"] = "email"
		}
		if !c.EmptyAllowed && c.Split == nil && c.Min == nil {
			out["minLength"] = 1
		}
	case schema.KindNumber:
		if c.Integer {
			types = []any{"integer"}
		} else {
			types = []any{"number"}
		}
		if c.Min != nil {
			out["minimum"] = *c.Min
		}
		if c.Max != nil {
			out["maximum"] = *c.Max
		}
		if c.Coerce {
			types = append(types, "string")
		}
	case schema.KindBoolean:
		types = []any{"boolean"}
		if c.Coerce {
			types = append(types, "string")
		}
	case schema.KindDate:
		types = []any{"string"}
		out["description"] = "date (RFC 3339 or YYYY-MM-DD)"
	}

	if c.Nullable {
		types = append(types, "null")
	}
	if len(types) == 1 {
		out["type"] = types[0]
	} else {
		out["type"] = types
	}
	if c.HasDefault {
		out["default"] = c.Default
	}
	return out
}

func exportObject(obj *schema.Object) map[string]any {
	properties := make(map[string]any, len(obj.Fields))
	required := make([]any, 0, len(obj.Fields))
	for _, name := range obj.Keys() {
		field := obj.Fields[name]
		if leaf, ok := field.(*schema.Leaf); ok && leaf.Constraints.Deny {
			properties[name] = false
			continue
		}
		properties[name] = Export(field)
		if isRequired(field) {
			required = append(required, name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if obj.Policy.Nullable {
		out["type"] = []any{"object", "null"}
	}
	if len(required) > 0 {
		out["required"] = required
	}
	if obj.Policy.UnknownKeys == schema.Reject {
		out["additionalProperties"] = false
	}
	if obj.Policy.MaxKeys > 0 {
		out["maxProperties"] = obj.Policy.MaxKeys
	}
	if !obj.Policy.EmptyAllowed {
		out["minProperties"] = 1
	}
	return out
}

func exportArray(arr *schema.Array) map[string]any {
	c := &arr.Constraints
	out := map[string]any{
		"type":  "array",
		"items": Export(arr.Item),
	}
	if c.Nullable {
		out["type"] = []any{"array", "null"}
	}
	minItems := c.MinLen
	if !c.EmptyAllowed && minItems == 0 {
		minItems = 1
	}
	if minItems > 0 {
		out["minItems"] = minItems
	}
	if c.MaxLen > 0 {
		out["maxItems"] = c.MaxLen
	}
	if c.Single {
		return map[string]any{"anyOf": []any{out, Export(arr.Item)}}
	}
	return out
}

// isRequired 字段缺失时是否报 MissingField
func isRequired(node schema.Node) bool {
	switch n := node.(type) {
	case *schema.Leaf:
		return !n.Constraints.Optional
	case *schema.Object:
		return !n.Policy.Optional
	case *schema.Array:
		return !n.Constraints.Optional
	case *schema.Alternative:
		return isRequired(n.Primary)
	default:
		return false
	}
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ============================================================================
// 编译
// ============================================================================

// Compile 导出并编译为可执行的 JSON Schema
func Compile(node schema.Node, id string) (*jsonschema.Schema, error) {
	if id == "" {
		id = "schema.json"
	}

	data, err := json.Marshal(Document(node, ""))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	if err := compiler.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}

// ValidateJSON 用编译后的 JSON Schema 校验一段 JSON
func ValidateJSON(compiled *jsonschema.Schema, data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return compiled.Validate(inst)
}

// ExportRequest 导出一个接口的三段 schema，键为 query/body/params，nil 分段不导出
// 各分段的 $id 为 "<id>:<分段名>"
func ExportRequest(id string, schemas validator.RequestSchemas) map[string]any {
	out := make(map[string]any, 3)
	sections := []struct {
		name string
		node schema.Node
	}{
		{validator.SectionQuery, schemas.Query},
		{validator.SectionBody, schemas.Body},
		{validator.SectionParams, schemas.Params},
	}
	for _, section := range sections {
		if section.node == nil {
			continue
		}
		sectionID := ""
		if id != "" {
			sectionID = id + ":" + section.name
		}
		out[section.name] = Document(section.node, sectionID)
	}
	return out
}

package resource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

// modelCache gorm 解析结果缓存
var modelCache sync.Map

// FromModel 从 GORM 模型的元数据提取白名单
//
// 列名取 json 标签（没有时取数据库列名），关联取关系字段的 json 标签（没有时取字段名）；
// json:"-" 的字段不出现在白名单中。只解析结构体元数据，不需要数据库连接。
func FromModel(model any) (Whitelist, error) {
	s, err := schema.Parse(model, &modelCache, schema.NamingStrategy{})
	if err != nil {
		return Whitelist{}, fmt.Errorf("parse gorm model %T: %w", model, err)
	}

	var w Whitelist
	for _, field := range s.Fields {
		if field.DBName == "" {
			continue
		}
		if name, ok := exposedName(field.Tag.Get("json"), field.DBName); ok {
			w.Columns = append(w.Columns, name)
		}
	}

	for _, rel := range s.Relationships.Relations {
		// 缓存中作为关联目标解析过的模型会带上对方的反向关系
		if rel.Field == nil || rel.Field.Schema != s {
			continue
		}
		if name, ok := exposedName(rel.Field.Tag.Get("json"), rel.Field.Name); ok {
			w.Associations = append(w.Associations, name)
		}
	}
	// Relations 是 map，排序保证结果稳定
	sort.Strings(w.Associations)
	return w, nil
}

// exposedName json 标签决定的对外名称
func exposedName(tag, fallback string) (string, bool) {
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return "", false
	case "":
		return fallback, true
	default:
		return name, true
	}
}

// Package resource 每个资源的声明数据（属性、关联、各场景的禁止字段），
// 以及据此为 list/get/create/update/delete 生成 validator.RequestSchemas。
//
// 声明只是配置数据，可以来自 YAML 文件、GORM 模型元数据或 Redis 中的动态白名单。
package resource

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"katydid-common-crud/pkg/validator"
)

// 属性类型
const (
	TypeUUID    = "uuid"
	TypeCode    = "code"
	TypeText    = "text"
	TypeEmail   = "email"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeDate    = "date"
	TypeEnum    = "enum"
)

var attributeTypes = []string{
	TypeUUID, TypeCode, TypeText, TypeEmail, TypeNumber, TypeInteger, TypeBoolean, TypeDate, TypeEnum,
}

// ErrInvalidDeclaration 资源声明不合法
var ErrInvalidDeclaration = errors.New("invalid resource declaration")

// File 资源声明文件
type File struct {
	Resources []Resource `yaml:"resources"`
}

// Resource 单个资源
type Resource struct {
	// Name 资源名，如 area
	Name string `yaml:"name"`
	// Path 路由前缀，如 /areas
	Path string `yaml:"path"`
	// IDParam 路径参数名，默认 id
	IDParam string `yaml:"id_param"`
	// MaxQueryKeys list 场景 query 的键数量上限，0 使用全局配置
	MaxQueryKeys int `yaml:"max_query_keys"`
	// Attributes 属性
	Attributes []Attribute `yaml:"attributes"`
	// Associations 可 include 的关联
	Associations []string `yaml:"associations"`
}

// Attribute 资源属性
type Attribute struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// Required body 中必填的场景（create/update）
	Required []string `yaml:"required"`
	// Deny 禁止客户端传入的场景
	Deny     []string `yaml:"deny"`
	Nullable bool     `yaml:"nullable"`
	// Filter list 场景是否接受过滤对象，默认 true（仅 text/number/integer/date 有效）
	Filter *bool `yaml:"filter"`
	// Sortable 是否可以作为 sortBy，默认 true
	Sortable *bool    `yaml:"sortable"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Pattern  string   `yaml:"pattern"`
	Values   []string `yaml:"values"`
}

// LoadFile 读取并解析 YAML 声明文件
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resources file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 声明
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeclaration, err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	for i := range file.Resources {
		if file.Resources[i].IDParam == "" {
			file.Resources[i].IDParam = "id"
		}
	}
	return &file, nil
}

// Validate 检查声明
func (f *File) Validate() error {
	seen := make(map[string]struct{}, len(f.Resources))
	for _, res := range f.Resources {
		if res.Name == "" {
			return fmt.Errorf("%w: resource name cannot be empty", ErrInvalidDeclaration)
		}
		if _, dup := seen[res.Name]; dup {
			return fmt.Errorf("%w: duplicate resource %q", ErrInvalidDeclaration, res.Name)
		}
		seen[res.Name] = struct{}{}
		if err := res.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate 检查单个资源
func (r *Resource) Validate() error {
	names := make(map[string]struct{}, len(r.Attributes))
	for _, attr := range r.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("%w: %s: attribute name cannot be empty", ErrInvalidDeclaration, r.Name)
		}
		if _, dup := names[attr.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate attribute %q", ErrInvalidDeclaration, r.Name, attr.Name)
		}
		names[attr.Name] = struct{}{}

		if !slices.Contains(attributeTypes, attr.Type) {
			return fmt.Errorf("%w: %s.%s: unknown type %q", ErrInvalidDeclaration, r.Name, attr.Name, attr.Type)
		}
		if attr.Type == TypeEnum && len(attr.Values) == 0 {
			return fmt.Errorf("%w: %s.%s: enum requires values", ErrInvalidDeclaration, r.Name, attr.Name)
		}
		for _, list := range [][]string{attr.Required, attr.Deny} {
			if _, ok := validator.ParseScenes(list); !ok {
				return fmt.Errorf("%w: %s.%s: unknown scene in %v", ErrInvalidDeclaration, r.Name, attr.Name, list)
			}
		}
	}
	return nil
}

// Columns 属性名，按声明顺序
func (r *Resource) Columns() []string {
	out := make([]string, 0, len(r.Attributes))
	for _, attr := range r.Attributes {
		out = append(out, attr.Name)
	}
	return out
}

// Find 按资源名查找
func (f *File) Find(name string) (*Resource, bool) {
	for i := range f.Resources {
		if f.Resources[i].Name == name {
			return &f.Resources[i], true
		}
	}
	return nil, false
}

func (a *Attribute) requiredIn(scene validator.ValidateScene) bool {
	s, _ := validator.ParseScenes(a.Required)
	return s.Has(scene)
}

func (a *Attribute) deniedIn(scene validator.ValidateScene) bool {
	s, _ := validator.ParseScenes(a.Deny)
	return s.Has(scene)
}

func (a *Attribute) filterable() bool {
	return a.Filter == nil || *a.Filter
}

func (a *Attribute) sortable() bool {
	return a.Sortable == nil || *a.Sortable
}

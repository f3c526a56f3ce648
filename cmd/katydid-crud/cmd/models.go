package cmd

import (
	"time"

	"katydid-common-crud/pkg/resource"
)

// Area 地区模型，只用于提取列与关联白名单
type Area struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	Code      string    `gorm:"size:32;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:128" json:"name"`
	Level     int       `json:"level"`
	ParentID  *string   `gorm:"type:char(36)" json:"parentId"`
	Parent    *Area     `gorm:"foreignKey:ParentID" json:"parent"`
	Children  []Area    `gorm:"foreignKey:ParentID" json:"children"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Secret    string    `json:"-"`
}

// models 资源名到模型的映射，已声明的资源会合并模型的白名单
var models = map[string]any{
	"area": &Area{},
}

// modelWhitelists 为声明文件中有对应模型的资源提取白名单
func modelWhitelists(file *resource.File) (map[string]resource.Whitelist, error) {
	out := make(map[string]resource.Whitelist)
	for _, res := range file.Resources {
		model, ok := models[res.Name]
		if !ok {
			continue
		}
		w, err := resource.FromModel(model)
		if err != nil {
			return nil, err
		}
		out[res.Name] = w
	}
	return out, nil
}

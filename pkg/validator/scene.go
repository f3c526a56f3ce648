package validator

import "strings"

// ValidateScene 校验场景标识符，使用位运算支持场景组合
// 设计目标：
//   - 使用 int64 类型，支持位运算（按位或、按位与）
//   - 允许场景组合：SceneCreate | SceneUpdate 表示同时适用于创建和更新场景
//   - 支持场景匹配：使用 scene.Has(target) 判断是否包含目标场景
//
// 使用示例：
//
//	// 创建和更新时都禁止客户端传入 id
//	deny := SceneCreate | SceneUpdate
//	if deny.Has(SceneUpdate) {
//	    fields["id"] = schema.Forbidden()
//	}
type ValidateScene int64

// CRUD 场景
const (
	SceneNone ValidateScene = 0  // 无场景
	SceneAll  ValidateScene = -1 // 所有场景(111...111)

	SceneList   ValidateScene = 1 << 0 // 列表查询
	SceneGet    ValidateScene = 1 << 1 // 单条查询
	SceneCreate ValidateScene = 1 << 2 // 创建
	SceneUpdate ValidateScene = 1 << 3 // 更新
	SceneDelete ValidateScene = 1 << 4 // 删除
)

// sceneNames 场景名，顺序即位序
var sceneNames = []struct {
	scene ValidateScene
	name  string
}{
	{SceneList, "list"},
	{SceneGet, "get"},
	{SceneCreate, "create"},
	{SceneUpdate, "update"},
	{SceneDelete, "delete"},
}

// Scenes 所有单一场景，按位序排列
func Scenes() []ValidateScene {
	out := make([]ValidateScene, len(sceneNames))
	for i, s := range sceneNames {
		out[i] = s.scene
	}
	return out
}

// Has 是否包含目标场景
func (s ValidateScene) Has(target ValidateScene) bool {
	return s&target != 0
}

// String 场景名，组合场景以 "|" 连接
func (s ValidateScene) String() string {
	switch s {
	case SceneNone:
		return "none"
	case SceneAll:
		return "all"
	}
	var names []string
	for _, item := range sceneNames {
		if s.Has(item.scene) {
			names = append(names, item.name)
		}
	}
	if len(names) == 0 {
		return "unknown"
	}
	return strings.Join(names, "|")
}

// ParseScene 解析场景名（list/get/create/update/delete/all）
func ParseScene(name string) (ValidateScene, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "all" {
		return SceneAll, true
	}
	for _, item := range sceneNames {
		if item.name == name {
			return item.scene, true
		}
	}
	return SceneNone, false
}

// ParseScenes 解析场景名列表并按位或合并，遇到未知名称时返回 false
func ParseScenes(names []string) (ValidateScene, bool) {
	var scene ValidateScene
	for _, name := range names {
		s, ok := ParseScene(name)
		if !ok {
			return SceneNone, false
		}
		scene |= s
	}
	return scene, true
}

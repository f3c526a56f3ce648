package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateScene_Has(t *testing.T) {
	deny := SceneCreate | SceneUpdate
	assert.True(t, deny.Has(SceneCreate))
	assert.True(t, deny.Has(SceneUpdate))
	assert.False(t, deny.Has(SceneList))
	assert.True(t, SceneAll.Has(SceneDelete))
	assert.False(t, SceneNone.Has(SceneGet))
}

func TestValidateScene_String(t *testing.T) {
	tests := []struct {
		name  string
		scene ValidateScene
		want  string
	}{
		{"无场景", SceneNone, "none"},
		{"所有场景", SceneAll, "all"},
		{"单一场景", SceneGet, "get"},
		{"组合场景", SceneList | SceneCreate, "list|create"},
		{"未知位", ValidateScene(1 << 10), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scene.String())
		})
	}
}

func TestParseScene(t *testing.T) {
	for _, scene := range Scenes() {
		parsed, ok := ParseScene(scene.String())
		assert.True(t, ok)
		assert.Equal(t, scene, parsed)
	}

	parsed, ok := ParseScene(" Update ")
	assert.True(t, ok)
	assert.Equal(t, SceneUpdate, parsed)

	parsed, ok = ParseScene("all")
	assert.True(t, ok)
	assert.Equal(t, SceneAll, parsed)

	_, ok = ParseScene("patch")
	assert.False(t, ok)
}

func TestParseScenes(t *testing.T) {
	scene, ok := ParseScenes([]string{"create", "update"})
	assert.True(t, ok)
	assert.Equal(t, SceneCreate|SceneUpdate, scene)

	scene, ok = ParseScenes(nil)
	assert.True(t, ok)
	assert.Equal(t, SceneNone, scene)

	_, ok = ParseScenes([]string{"create", "bogus"})
	assert.False(t, ok)
}

package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCategory struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	Name     string         `json:"name"`
	ParentID *uint          `json:"parentId"`
	Parent   *testCategory  `gorm:"foreignKey:ParentID" json:"parent"`
	Items    []testItem     `gorm:"foreignKey:CategoryID" json:"items"`
	Children []testCategory `gorm:"foreignKey:ParentID"`
	Token    string         `json:"-"`
	Created  time.Time
}

type testItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CategoryID uint   `json:"categoryId"`
	Title      string `json:"title,omitempty"`
}

func TestFromModel(t *testing.T) {
	w, err := FromModel(&testCategory{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "parentId", "created"}, w.Columns)
	assert.NotContains(t, w.Columns, "token")
	assert.Equal(t, []string{"Children", "items", "parent"}, w.Associations)

	w, err = FromModel(&testItem{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "categoryId", "title"}, w.Columns)
	assert.Empty(t, w.Associations)
}

func TestFromModel_Invalid(t *testing.T) {
	_, err := FromModel("not a struct")
	assert.Error(t, err)
}

func TestExposedName(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		expected string
		ok       bool
	}{
		{"无标签使用默认名", "", "col", true},
		{"普通标签", "title", "title", true},
		{"带选项的标签", "title,omitempty", "title", true},
		{"忽略字段", "-", "", false},
		{"只有选项", ",omitempty", "col", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := exposedName(tt.tag, "col")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, name)
		})
	}
}

type testOwner struct {
	ID    uint       `gorm:"primaryKey" json:"id"`
	Pets  []testPet  `gorm:"foreignKey:OwnerID" json:"pets"`
	Homes []testHome `gorm:"foreignKey:OwnerID" json:"homes"`
}

type testPet struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	OwnerID uint   `json:"ownerId"`
	Name    string `json:"name"`
}

type testHome struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OwnerID uint `json:"ownerId"`
}

func TestFromModel_OwnRelationsOnly(t *testing.T) {
	// 先解析持有方，关联目标随之进入缓存
	owner, err := FromModel(&testOwner{})
	require.NoError(t, err)
	assert.Equal(t, []string{"homes", "pets"}, owner.Associations)

	pet, err := FromModel(&testPet{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "ownerId", "name"}, pet.Columns)
	assert.Empty(t, pet.Associations)

	home, err := FromModel(&testHome{})
	require.NoError(t, err)
	assert.Empty(t, home.Associations)
}

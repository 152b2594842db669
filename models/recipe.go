package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 10000
	MinAmount      = 1
)

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Color string `gorm:"size:7;not null;uniqueIndex" json:"color"`
	Slug  string `gorm:"size:200;not null;uniqueIndex" json:"slug"`
}

func (Tag) TableName() string { return "tags" }

// Ingredient 按 (name, measurement_unit) 去重
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:200;not null;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"column:measurement_unit;size:200;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
	// NameLower 名称的 Unicode 小写形式，供前缀搜索；SQLite 的 LOWER 只处理 ASCII
	NameLower       string `gorm:"column:name_lower;size:200;index" json:"-"`
}

func (Ingredient) TableName() string { return "ingredients" }

func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	i.NameLower = strings.ToLower(i.Name)
	return nil
}

type Recipe struct {
	ID          uint                  `gorm:"primaryKey"`
	AuthorID    uint                  `gorm:"not null;index"`
	Author      User                  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Name        string                `gorm:"size:200;not null"`
	Image       string                `gorm:"size:255"`
	Text        string                `gorm:"type:text;not null"`
	CookingTime int                   `gorm:"column:cooking_time;not null"`
	CreatedAt   time.Time             `gorm:"index"`
	Ingredients []IngredientForRecipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Tags        []Tag                 `gorm:"many2many:tag_for_recipes;joinForeignKey:RecipeID;joinReferences:TagID"`
}

func (Recipe) TableName() string { return "recipes" }

// IngredientForRecipe 同一食谱内同一食材只能出现一次
type IngredientForRecipe struct {
	ID           uint       `gorm:"primaryKey"`
	RecipeID     uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient"`
	IngredientID uint       `gorm:"not null;uniqueIndex:idx_recipe_ingredient;index"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Amount       int        `gorm:"not null"`
}

func (IngredientForRecipe) TableName() string { return "ingredient_for_recipes" }

type TagForRecipe struct {
	RecipeID uint `gorm:"primaryKey;autoIncrement:false"`
	TagID    uint `gorm:"primaryKey;autoIncrement:false;index"`
}

func (TagForRecipe) TableName() string { return "tag_for_recipes" }

type Favorite struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_favorite_pair"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_favorite_pair;index"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (Favorite) TableName() string { return "favorites" }

type ShoppingCart struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_shopping_cart_pair"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_shopping_cart_pair;index"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (ShoppingCart) TableName() string { return "shopping_carts" }

// Migrate 建表；食谱与标签的关联走自定义中间表 tag_for_recipes
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Recipe{}, "Tags", &TagForRecipe{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&User{}, &Subscription{},
		&Tag{}, &Ingredient{},
		&Recipe{}, &TagForRecipe{}, &IngredientForRecipe{},
		&Favorite{}, &ShoppingCart{},
	)
}

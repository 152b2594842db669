package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/imagestore"
	"github.com/studieren/foodgram/models"
	"gorm.io/gorm"
)

const (
	maxRecipeName = 200
	imagePrefix   = "recipes"
)

var recipePreloads = []string{"Author", "Tags", "Ingredients.Ingredient"}

type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeInput 写入参数；创建时标量字段必填，更新时为 nil 的字段保持原值。
// Ingredients 与 Tags 在两种情况下都必填，并整体替换原有关联。
type RecipeInput struct {
	Name        *string
	Text        *string
	CookingTime *int
	Image       *string // base64 data URI
	Ingredients []IngredientAmount
	Tags        []uint
}

// RecipeView 食谱及调用者相关的标记
type RecipeView struct {
	Recipe           models.Recipe
	IsFavorited      bool
	IsInShoppingCart bool
	AuthorFollowed   bool
}

type RecipeFilter struct {
	AuthorID         *uint
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
}

func validateRecipe(in RecipeInput, partial bool) error {
	fields := map[string]string{}

	if in.Name != nil || !partial {
		switch {
		case in.Name == nil || strings.TrimSpace(*in.Name) == "":
			fields["name"] = "this field is required"
		case utf8.RuneCountInString(*in.Name) > maxRecipeName:
			fields["name"] = fmt.Sprintf("must be at most %d characters", maxRecipeName)
		}
	}
	if (in.Text != nil || !partial) && (in.Text == nil || strings.TrimSpace(*in.Text) == "") {
		fields["text"] = "this field is required"
	}
	if in.CookingTime != nil || !partial {
		if in.CookingTime == nil {
			fields["cooking_time"] = "this field is required"
		} else if *in.CookingTime < models.MinCookingTime || *in.CookingTime > models.MaxCookingTime {
			fields["cooking_time"] = fmt.Sprintf("must be between %d and %d", models.MinCookingTime, models.MaxCookingTime)
		}
	}
	if !partial && (in.Image == nil || *in.Image == "") {
		fields["image"] = "this field is required"
	}

	if len(in.Ingredients) == 0 {
		fields["ingredients"] = "at least one ingredient is required"
	}
	for i, ia := range in.Ingredients {
		key := "ingredients[" + strconv.Itoa(i) + "]"
		if ia.ID == 0 {
			fields[key+".id"] = "this field is required"
		}
		if ia.Amount < models.MinAmount {
			fields[key+".amount"] = fmt.Sprintf("must be at least %d", models.MinAmount)
		}
	}
	if len(in.Tags) == 0 {
		fields["tags"] = "at least one tag is required"
	}

	if len(fields) > 0 {
		return &Error{Kind: KindValidation, Message: "invalid recipe", Fields: fields}
	}

	seen := make(map[uint]struct{}, len(in.Ingredients))
	for _, ia := range in.Ingredients {
		if _, dup := seen[ia.ID]; dup {
			return conflict(fmt.Sprintf("ingredient %d is listed more than once", ia.ID))
		}
		seen[ia.ID] = struct{}{}
	}
	seenTags := make(map[uint]struct{}, len(in.Tags))
	for _, id := range in.Tags {
		if _, dup := seenTags[id]; dup {
			return conflict(fmt.Sprintf("tag %d is listed more than once", id))
		}
		seenTags[id] = struct{}{}
	}
	return nil
}

func (s *Service) storeImage(ctx context.Context, dataURI string) (string, error) {
	img, err := imagestore.DecodeDataURI(dataURI)
	if err != nil {
		return "", invalid("image", err.Error())
	}
	key := imagestore.NewKey(imagePrefix, img)
	if err := s.images.Save(ctx, key, img); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return key, nil
}

func (s *Service) dropImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.crud.Logger.Warn(ctx, "image delete failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// CreateRecipe 食谱连同食材与标签在同一事务内创建
func (s *Service) CreateRecipe(ctx context.Context, who auth.Identity, in RecipeInput) (*RecipeView, error) {
	if who.Anonymous() {
		return nil, ErrUnauthorized
	}
	if err := validateRecipe(in, false); err != nil {
		return nil, err
	}

	start := time.Now()
	imageKey, err := s.storeImage(ctx, *in.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    who.UserID,
		Name:        strings.TrimSpace(*in.Name),
		Text:        *in.Text,
		CookingTime: *in.CookingTime,
		Image:       imageKey,
	}
	err = s.crud.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		if err := tx.Omit("Author", "Tags", "Ingredients").Create(&recipe).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, in)
	})
	s.crud.LogOperation(ctx, "recipe_create", &recipe, time.Since(start), err, map[string]interface{}{
		"author_id": who.UserID,
	})
	if err != nil {
		s.dropImage(ctx, imageKey)
		return nil, translateWrite(err, "create recipe")
	}
	return s.GetRecipe(ctx, who, recipe.ID)
}

// UpdateRecipe 仅作者可改；食材与标签先删后建，整体替换
func (s *Service) UpdateRecipe(ctx context.Context, who auth.Identity, id uint, in RecipeInput) (*RecipeView, error) {
	if who.Anonymous() {
		return nil, ErrUnauthorized
	}
	recipe, err := s.ownedRecipe(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if err := validateRecipe(in, true); err != nil {
		return nil, err
	}

	start := time.Now()
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Text != nil {
		updates["text"] = *in.Text
	}
	if in.CookingTime != nil {
		updates["cooking_time"] = *in.CookingTime
	}
	newImage := ""
	if in.Image != nil && *in.Image != "" {
		if newImage, err = s.storeImage(ctx, *in.Image); err != nil {
			return nil, err
		}
		updates["image"] = newImage
	}

	err = s.crud.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := checkReferences(tx, in); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientForRecipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.TagForRecipe{}).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, in)
	})
	s.crud.LogOperation(ctx, "recipe_update", recipe, time.Since(start), err, map[string]interface{}{
		"recipe_id": recipe.ID,
	})
	if err != nil {
		s.dropImage(ctx, newImage)
		return nil, translateWrite(err, "update recipe")
	}
	if newImage != "" {
		s.dropImage(ctx, recipe.Image)
	}
	return s.GetRecipe(ctx, who, recipe.ID)
}

// DeleteRecipe 仅作者可删，连带删除关联行
func (s *Service) DeleteRecipe(ctx context.Context, who auth.Identity, id uint) error {
	if who.Anonymous() {
		return ErrUnauthorized
	}
	recipe, err := s.ownedRecipe(ctx, who, id)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.crud.WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&models.IngredientForRecipe{}, &models.TagForRecipe{},
			&models.Favorite{}, &models.ShoppingCart{},
		} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, recipe.ID).Error
	})
	s.crud.LogOperation(ctx, "recipe_delete", recipe, time.Since(start), err, map[string]interface{}{
		"recipe_id": recipe.ID,
	})
	if err != nil {
		return fmt.Errorf("delete recipe %d: %w", id, err)
	}
	s.dropImage(ctx, recipe.Image)
	return nil
}

func (s *Service) ownedRecipe(ctx context.Context, who auth.Identity, id uint) (*models.Recipe, error) {
	recipe, err := s.findRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != who.UserID {
		return nil, forbidden("only the author can modify this recipe")
	}
	return recipe, nil
}

// checkReferences 所有食材与标签必须存在
func checkReferences(tx *gorm.DB, in RecipeInput) error {
	ids := make([]uint, len(in.Ingredients))
	for i, ia := range in.Ingredients {
		ids[i] = ia.ID
	}
	if missing, err := missingIDs(tx, &models.Ingredient{}, ids); err != nil {
		return err
	} else if missing != 0 {
		return notFound("ingredient", missing)
	}
	if missing, err := missingIDs(tx, &models.Tag{}, in.Tags); err != nil {
		return err
	} else if missing != 0 {
		return notFound("tag", missing)
	}
	return nil
}

// missingIDs 返回第一个不存在的 id，全部存在时返回 0
func missingIDs(tx *gorm.DB, model interface{}, ids []uint) (uint, error) {
	var found []uint
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return 0, err
	}
	have := make(map[uint]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return id, nil
		}
	}
	return 0, nil
}

func replaceAssociations(tx *gorm.DB, recipeID uint, in RecipeInput) error {
	rows := make([]models.IngredientForRecipe, len(in.Ingredients))
	for i, ia := range in.Ingredients {
		rows[i] = models.IngredientForRecipe{RecipeID: recipeID, IngredientID: ia.ID, Amount: ia.Amount}
	}
	if err := tx.Omit("Ingredient").Create(&rows).Error; err != nil {
		return err
	}
	links := make([]models.TagForRecipe, len(in.Tags))
	for i, id := range in.Tags {
		links[i] = models.TagForRecipe{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&links).Error
}

// translateWrite 业务错误原样返回，唯一约束冲突转为 Conflict
func translateWrite(err error, op string) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if gormtool.IsDuplicate(err) {
		return conflict("duplicate ingredient or tag in recipe")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) GetRecipe(ctx context.Context, who auth.Identity, id uint) (*RecipeView, error) {
	var recipe models.Recipe
	if err := s.crud.First(ctx, &recipe, id, recipePreloads...); err != nil {
		if gormtool.IsNotFound(err) {
			return nil, notFound("recipe", id)
		}
		return nil, fmt.Errorf("get recipe %d: %w", id, err)
	}
	views, err := s.decorate(ctx, who, []models.Recipe{recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListRecipes 最新的在前；收藏/购物车过滤对匿名用户返回空页
func (s *Service) ListRecipes(ctx context.Context, who auth.Identity, f RecipeFilter, page gormtool.Pagination) ([]RecipeView, int64, error) {
	if err := s.checkTagSlugs(ctx, f.TagSlugs); err != nil {
		return nil, 0, err
	}
	if (f.IsFavorited || f.IsInShoppingCart) && who.Anonymous() {
		return []RecipeView{}, 0, nil
	}

	db := s.crud.DB.WithContext(ctx)
	qb := &gormtool.QueryBuilder{
		Sorts: []gormtool.SortCondition{
			{Field: "recipes.created_at", Direction: "DESC"},
			{Field: "recipes.id", Direction: "DESC"},
		},
		Preloads: recipePreloads,
	}
	if f.AuthorID != nil {
		qb.Where("recipes.author_id", "=", *f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		qb.Where("recipes.id", "IN", db.Model(&models.TagForRecipe{}).
			Select("tag_for_recipes.recipe_id").
			Joins("JOIN tags ON tags.id = tag_for_recipes.tag_id").
			Where("tags.slug IN ?", f.TagSlugs))
	}
	if f.IsFavorited {
		qb.Where("recipes.id", "IN", db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", who.UserID))
	}
	if f.IsInShoppingCart {
		qb.Where("recipes.id", "IN", db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", who.UserID))
	}

	start := time.Now()
	var recipes []models.Recipe
	total, err := s.crud.FindPage(ctx, &recipes, qb, page)
	s.crud.LogOperation(ctx, "recipe_list", &recipes, time.Since(start), err, map[string]interface{}{
		"page": page.Page, "total": total,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	views, err := s.decorate(ctx, who, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// checkTagSlugs 未知的 slug 按校验错误处理
func (s *Service) checkTagSlugs(ctx context.Context, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	var known []string
	if err := s.crud.DB.WithContext(ctx).Model(&models.Tag{}).Where("slug IN ?", slugs).Pluck("slug", &known).Error; err != nil {
		return fmt.Errorf("resolve tag slugs: %w", err)
	}
	found := make(map[string]struct{}, len(known))
	for _, slug := range known {
		found[slug] = struct{}{}
	}
	for _, slug := range slugs {
		if _, ok := found[slug]; !ok {
			return invalid("tags", fmt.Sprintf("unknown tag slug %q", slug))
		}
	}
	return nil
}

// decorate 批量计算调用者的收藏、购物车与关注标记
func (s *Service) decorate(ctx context.Context, who auth.Identity, recipes []models.Recipe) ([]RecipeView, error) {
	views := make([]RecipeView, len(recipes))
	for i := range recipes {
		sortRecipe(&recipes[i])
		views[i].Recipe = recipes[i]
	}
	if who.Anonymous() || len(recipes) == 0 {
		return views, nil
	}

	ids := make([]uint, len(recipes))
	authors := make([]uint, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		authors[i] = r.AuthorID
	}
	db := s.crud.DB.WithContext(ctx)

	var fav, cart, followed []uint
	if err := db.Model(&models.Favorite{}).Where("user_id = ? AND recipe_id IN ?", who.UserID, ids).Pluck("recipe_id", &fav).Error; err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	if err := db.Model(&models.ShoppingCart{}).Where("user_id = ? AND recipe_id IN ?", who.UserID, ids).Pluck("recipe_id", &cart).Error; err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := db.Model(&models.Subscription{}).Where("follower_id = ? AND author_id IN ?", who.UserID, authors).Pluck("author_id", &followed).Error; err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	favSet, cartSet, followSet := toSet(fav), toSet(cart), toSet(followed)
	for i := range views {
		r := views[i].Recipe
		_, views[i].IsFavorited = favSet[r.ID]
		_, views[i].IsInShoppingCart = cartSet[r.ID]
		_, views[i].AuthorFollowed = followSet[r.AuthorID]
	}
	return views, nil
}

func sortRecipe(r *models.Recipe) {
	sort.Slice(r.Ingredients, func(i, j int) bool { return r.Ingredients[i].ID < r.Ingredients[j].ID })
	sort.Slice(r.Tags, func(i, j int) bool { return r.Tags[i].ID < r.Tags[j].ID })
}

func toSet(ids []uint) map[uint]struct{} {
	m := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

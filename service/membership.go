package service

import (
	"context"
	"fmt"
	"time"

	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/models"
)

// List 用户与食谱之间的两类关系
type List int

const (
	Favorites List = iota
	ShoppingCart
)

func (l List) String() string {
	if l == ShoppingCart {
		return "shopping_cart"
	}
	return "favorites"
}

func (l List) row(userID, recipeID uint) interface{} {
	if l == ShoppingCart {
		return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
	}
	return &models.Favorite{UserID: userID, RecipeID: recipeID}
}

func (l List) model() interface{} {
	if l == ShoppingCart {
		return &models.ShoppingCart{}
	}
	return &models.Favorite{}
}

// AddToList 已存在时返回 Conflict；并发插入由唯一索引兜底
func (s *Service) AddToList(ctx context.Context, who auth.Identity, list List, recipeID uint) (*models.Recipe, error) {
	if who.Anonymous() {
		return nil, ErrUnauthorized
	}
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	exists, err := s.crud.Exists(ctx, list.model(), "user_id = ? AND recipe_id = ?", who.UserID, recipeID)
	if err == nil && exists {
		return nil, conflict(fmt.Sprintf("recipe already added to %s", list))
	}
	if err == nil {
		err = s.crud.DB.WithContext(ctx).Omit("User", "Recipe").Create(list.row(who.UserID, recipeID)).Error
	}
	s.crud.LogOperation(ctx, "add_to_"+list.String(), list.model(), time.Since(start), err, map[string]interface{}{
		"user_id": who.UserID, "recipe_id": recipeID,
	})
	if gormtool.IsDuplicate(err) {
		return nil, conflict(fmt.Sprintf("recipe already added to %s", list))
	}
	if err != nil {
		return nil, fmt.Errorf("add to %s: %w", list, err)
	}
	return recipe, nil
}

// RemoveFromList 不存在时返回 NotLinked
func (s *Service) RemoveFromList(ctx context.Context, who auth.Identity, list List, recipeID uint) error {
	if who.Anonymous() {
		return ErrUnauthorized
	}
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}

	start := time.Now()
	res := s.crud.DB.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", who.UserID, recipeID).
		Delete(list.model())
	s.crud.LogOperation(ctx, "remove_from_"+list.String(), list.model(), time.Since(start), res.Error, map[string]interface{}{
		"user_id": who.UserID, "recipe_id": recipeID,
	})
	if res.Error != nil {
		return fmt.Errorf("remove from %s: %w", list, res.Error)
	}
	if res.RowsAffected == 0 {
		return notLinked(fmt.Sprintf("recipe was not added to %s", list))
	}
	return nil
}

func (s *Service) findRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.crud.First(ctx, &recipe, id); err != nil {
		if gormtool.IsNotFound(err) {
			return nil, notFound("recipe", id)
		}
		return nil, fmt.Errorf("load recipe %d: %w", id, err)
	}
	return &recipe, nil
}

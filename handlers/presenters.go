package handlers

import (
	"github.com/studieren/foodgram/models"
	"github.com/studieren/foodgram/service"
)

// 读写结构在这里显式映射，每个接口的输出形状固定

type TagOut struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

type IngredientOut struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type UserOut struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
}

type RecipeIngredientOut struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type RecipeRead struct {
	ID               uint                  `json:"id"`
	Tags             []TagOut              `json:"tags"`
	Author           UserOut               `json:"author"`
	Ingredients      []RecipeIngredientOut `json:"ingredients"`
	IsFavorited      bool                  `json:"is_favorited"`
	IsInShoppingCart bool                  `json:"is_in_shopping_cart"`
	Name             string                `json:"name"`
	Image            string                `json:"image"`
	Text             string                `json:"text"`
	CookingTime      int                   `json:"cooking_time"`
}

type RecipeShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type SubscriptionOut struct {
	UserOut
	Recipes      []RecipeShort `json:"recipes"`
	RecipesCount int64         `json:"recipes_count"`
}

func tagOut(t models.Tag) TagOut {
	return TagOut{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func tagsOut(tags []models.Tag) []TagOut {
	out := make([]TagOut, len(tags))
	for i, t := range tags {
		out[i] = tagOut(t)
	}
	return out
}

func ingredientOut(i models.Ingredient) IngredientOut {
	return IngredientOut{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func userOut(u models.User, subscribed bool) UserOut {
	return UserOut{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func (h *Handler) recipeRead(v service.RecipeView) RecipeRead {
	r := v.Recipe
	ings := make([]RecipeIngredientOut, len(r.Ingredients))
	for i, ifr := range r.Ingredients {
		ings[i] = RecipeIngredientOut{
			ID:              ifr.IngredientID,
			Name:            ifr.Ingredient.Name,
			MeasurementUnit: ifr.Ingredient.MeasurementUnit,
			Amount:          ifr.Amount,
		}
	}
	return RecipeRead{
		ID:               r.ID,
		Tags:             tagsOut(r.Tags),
		Author:           userOut(r.Author, v.AuthorFollowed),
		Ingredients:      ings,
		IsFavorited:      v.IsFavorited,
		IsInShoppingCart: v.IsInShoppingCart,
		Name:             r.Name,
		Image:            h.svc.ImageURL(r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func (h *Handler) recipeShort(r models.Recipe) RecipeShort {
	return RecipeShort{ID: r.ID, Name: r.Name, Image: h.svc.ImageURL(r.Image), CookingTime: r.CookingTime}
}

func (h *Handler) subscriptionOut(v service.AuthorView) SubscriptionOut {
	recipes := make([]RecipeShort, len(v.Recipes))
	for i, r := range v.Recipes {
		recipes[i] = h.recipeShort(r)
	}
	return SubscriptionOut{
		UserOut:      userOut(v.User, v.Followed),
		Recipes:      recipes,
		RecipesCount: v.RecipesCount,
	}
}

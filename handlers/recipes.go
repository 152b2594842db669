package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/service"
)

const shoppingListFilename = "shopping_list.txt"

type ingredientAmountRequest struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required,min=1"`
}

// recipeRequest POST 与 PATCH 共用；标量字段的必填检查在 service 层
type recipeRequest struct {
	Name        *string                   `json:"name" binding:"omitempty,max=200"`
	Text        *string                   `json:"text"`
	CookingTime *int                      `json:"cooking_time" binding:"omitempty,min=1,max=10000"`
	Image       *string                   `json:"image" binding:"omitempty,imagedata"`
	Ingredients []ingredientAmountRequest `json:"ingredients" binding:"required,min=1,dive"`
	Tags        []uint                    `json:"tags" binding:"required,min=1,dive,gt=0"`
}

func (r recipeRequest) input() service.RecipeInput {
	in := service.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		CookingTime: r.CookingTime,
		Image:       r.Image,
		Ingredients: make([]service.IngredientAmount, len(r.Ingredients)),
		Tags:        r.Tags,
	}
	for i, ia := range r.Ingredients {
		in.Ingredients[i] = service.IngredientAmount{ID: ia.ID, Amount: ia.Amount}
	}
	return in
}

func (h *Handler) listRecipes(c *gin.Context) {
	filter, err := recipeFilter(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, err := pagination(c)
	if err != nil {
		fail(c, err)
		return
	}

	views, total, err := h.svc.ListRecipes(c.Request.Context(), auth.Current(c), filter, page)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]RecipeRead, len(views))
	for i, v := range views {
		out[i] = h.recipeRead(v)
	}
	okPage(c, out, page, total)
}

// recipeFilter author=<id>&tags=<slug>&tags=<slug>&is_favorited=1&is_in_shopping_cart=0
func recipeFilter(c *gin.Context) (service.RecipeFilter, error) {
	var f service.RecipeFilter
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return f, badRequest("author", "must be a positive integer")
		}
		author := uint(id)
		f.AuthorID = &author
	}
	for _, slug := range c.QueryArray("tags") {
		if slug = strings.TrimSpace(slug); slug != "" {
			f.TagSlugs = append(f.TagSlugs, slug)
		}
	}

	var err error
	if f.IsFavorited, err = flag(c, "is_favorited"); err != nil {
		return f, err
	}
	if f.IsInShoppingCart, err = flag(c, "is_in_shopping_cart"); err != nil {
		return f, err
	}
	return f, nil
}

func flag(c *gin.Context, name string) (bool, error) {
	switch strings.ToLower(c.Query(name)) {
	case "", "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	default:
		return false, badRequest(name, "must be one of 1, 0, true, false")
	}
}

func (h *Handler) getRecipe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.svc.GetRecipe(c.Request.Context(), auth.Current(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, h.recipeRead(*view))
}

func (h *Handler) createRecipe(c *gin.Context) {
	var req recipeRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	view, err := h.svc.CreateRecipe(c.Request.Context(), auth.Current(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, h.recipeRead(*view))
}

func (h *Handler) updateRecipe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req recipeRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	view, err := h.svc.UpdateRecipe(c.Request.Context(), auth.Current(c), id, req.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, h.recipeRead(*view))
}

func (h *Handler) deleteRecipe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.DeleteRecipe(c.Request.Context(), auth.Current(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) addTo(list service.List) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		recipe, err := h.svc.AddToList(c.Request.Context(), auth.Current(c), list, id)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, http.StatusCreated, h.recipeShort(*recipe))
	}
}

func (h *Handler) removeFrom(list service.List) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		if err := h.svc.RemoveFromList(c.Request.Context(), auth.Current(c), list, id); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// downloadShoppingCart 纯文本附件；购物车为空时 body 为空
func (h *Handler) downloadShoppingCart(c *gin.Context) {
	text, err := h.svc.ShoppingList(c.Request.Context(), auth.Current(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFilename+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

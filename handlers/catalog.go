package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listIngredients ?name= 前缀搜索，不分页
func (h *Handler) listIngredients(c *gin.Context) {
	items, err := h.svc.SearchIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]IngredientOut, len(items))
	for i, it := range items {
		out[i] = ingredientOut(it)
	}
	ok(c, http.StatusOK, out)
}

func (h *Handler) getIngredient(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ing, err := h.svc.GetIngredient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ingredientOut(*ing))
}

func (h *Handler) listTags(c *gin.Context) {
	tags, err := h.svc.ListTags(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, tagsOut(tags))
}

func (h *Handler) getTag(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	tag, err := h.svc.GetTag(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, tagOut(*tag))
}

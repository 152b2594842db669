package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/studieren/foodgram/auth"
)

func (h *Handler) getUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.svc.GetUser(c.Request.Context(), auth.Current(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, userOut(view.User, view.Followed))
}

func (h *Handler) me(c *gin.Context) {
	view, err := h.svc.Me(c.Request.Context(), auth.Current(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, userOut(view.User, false))
}

// listSubscriptions ?page=&limit=&recipes_limit=
func (h *Handler) listSubscriptions(c *gin.Context) {
	page, err := pagination(c)
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := optionalLimit(c, "recipes_limit")
	if err != nil {
		fail(c, err)
		return
	}
	views, total, err := h.svc.ListSubscriptions(c.Request.Context(), auth.Current(c), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]SubscriptionOut, len(views))
	for i, v := range views {
		out[i] = h.subscriptionOut(v)
	}
	okPage(c, out, page, total)
}

func (h *Handler) subscribe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := optionalLimit(c, "recipes_limit")
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.svc.Subscribe(c.Request.Context(), auth.Current(c), id, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, h.subscriptionOut(*view))
}

func (h *Handler) unsubscribe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Unsubscribe(c.Request.Context(), auth.Current(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

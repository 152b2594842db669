package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/models"
)

func TestSubscribe(t *testing.T) {
	f := newFixture(t)
	f.recipe(t, f.alice, "Bread", IngredientAmount{ID: f.flour.ID, Amount: 2})
	f.recipe(t, f.alice, "Cake", IngredientAmount{ID: f.sugar.ID, Amount: 2})
	f.recipe(t, f.alice, "Omelette", IngredientAmount{ID: f.eggs.ID, Amount: 2})

	_, err := f.svc.Subscribe(f.ctx, f.bob, f.bob.UserID, 0)
	requireKind(t, err, KindConflict)

	_, err = f.svc.Subscribe(f.ctx, auth.Identity{}, f.alice.UserID, 0)
	requireKind(t, err, KindUnauthorized)

	_, err = f.svc.Subscribe(f.ctx, f.bob, 9999, 0)
	requireKind(t, err, KindNotFound)

	view, err := f.svc.Subscribe(f.ctx, f.bob, f.alice.UserID, 2)
	require.NoError(t, err)
	assert.True(t, view.Followed)
	assert.Equal(t, "alice", view.User.Username)
	assert.EqualValues(t, 3, view.RecipesCount)
	require.Len(t, view.Recipes, 2)
	assert.Equal(t, "Omelette", view.Recipes[0].Name)

	_, err = f.svc.Subscribe(f.ctx, f.bob, f.alice.UserID, 0)
	requireKind(t, err, KindConflict)

	var n int64
	require.NoError(t, f.crud.DB.Model(&models.Subscription{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Subscribe(f.ctx, f.bob, f.alice.UserID, 0)
	require.NoError(t, err)

	require.NoError(t, f.svc.Unsubscribe(f.ctx, f.bob, f.alice.UserID))
	requireKind(t, f.svc.Unsubscribe(f.ctx, f.bob, f.alice.UserID), KindNotLinked)
	requireKind(t, f.svc.Unsubscribe(f.ctx, f.bob, 9999), KindNotFound)
	requireKind(t, f.svc.Unsubscribe(f.ctx, auth.Identity{}, f.alice.UserID), KindUnauthorized)
}

func TestListSubscriptions(t *testing.T) {
	f := newFixture(t)
	carol, err := f.svc.CreateUser(f.ctx, models.User{Email: "carol@example.com", Username: "carol"})
	require.NoError(t, err)

	f.recipe(t, f.alice, "Bread", IngredientAmount{ID: f.flour.ID, Amount: 2})
	f.recipe(t, f.alice, "Cake", IngredientAmount{ID: f.sugar.ID, Amount: 2})

	_, err = f.svc.Subscribe(f.ctx, f.bob, f.alice.UserID, 0)
	require.NoError(t, err)
	_, err = f.svc.Subscribe(f.ctx, f.bob, carol.ID, 0)
	require.NoError(t, err)
	// 反向关注不出现在 bob 的列表里
	_, err = f.svc.Subscribe(f.ctx, f.alice, f.bob.UserID, 0)
	require.NoError(t, err)

	views, total, err := f.svc.ListSubscriptions(f.ctx, f.bob, firstPage(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, views, 2)

	assert.Equal(t, f.alice.UserID, views[0].User.ID)
	assert.True(t, views[0].Followed)
	assert.EqualValues(t, 2, views[0].RecipesCount)
	assert.Len(t, views[0].Recipes, 1)

	assert.Equal(t, carol.ID, views[1].User.ID)
	assert.Zero(t, views[1].RecipesCount)
	assert.Empty(t, views[1].Recipes)

	all, _, err := f.svc.ListSubscriptions(f.ctx, f.bob, firstPage(), 0)
	require.NoError(t, err)
	assert.Len(t, all[0].Recipes, 2, "no limit returns every recipe")

	_, _, err = f.svc.ListSubscriptions(f.ctx, auth.Identity{}, firstPage(), 0)
	requireKind(t, err, KindUnauthorized)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.GetUser(f.ctx, f.bob, f.alice.UserID)
	require.NoError(t, err)
	assert.False(t, view.Followed)

	_, err = f.svc.Subscribe(f.ctx, f.bob, f.alice.UserID, 0)
	require.NoError(t, err)
	view, err = f.svc.GetUser(f.ctx, f.bob, f.alice.UserID)
	require.NoError(t, err)
	assert.True(t, view.Followed)

	anon, err := f.svc.GetUser(f.ctx, auth.Identity{}, f.alice.UserID)
	require.NoError(t, err)
	assert.False(t, anon.Followed)

	_, err = f.svc.GetUser(f.ctx, f.bob, 9999)
	requireKind(t, err, KindNotFound)

	me, err := f.svc.Me(f.ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.User.Email)

	_, err = f.svc.Me(f.ctx, auth.Identity{})
	requireKind(t, err, KindUnauthorized)
}

func TestCreateUserDuplicate(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateUser(f.ctx, models.User{Email: "other@example.com", Username: "alice"})
	requireKind(t, err, KindConflict)
	_, err = f.svc.CreateUser(f.ctx, models.User{Email: "x@example.com"})
	requireKind(t, err, KindValidation)
}

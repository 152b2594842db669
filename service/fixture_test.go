package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/gormtool/gormtest"
	"github.com/studieren/foodgram/imagestore"
	"github.com/studieren/foodgram/models"
)

// 1x1 透明 PNG
const pngDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type fixture struct {
	ctx    context.Context
	svc    *Service
	crud   *gormtool.CRUDTool
	images *imagestore.LocalStore

	alice, bob auth.Identity

	flour, sugar, eggs models.Ingredient
	breakfast, dinner  models.Tag
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	crud := gormtest.New(t)
	images, err := imagestore.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	f := &fixture{ctx: ctx, svc: New(crud, images), crud: crud, images: images}

	alice, err := f.svc.CreateUser(ctx, models.User{Email: "alice@example.com", Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	bob, err := f.svc.CreateUser(ctx, models.User{Email: "bob@example.com", Username: "bob", FirstName: "Bob"})
	require.NoError(t, err)
	f.alice = auth.Identity{UserID: alice.ID}
	f.bob = auth.Identity{UserID: bob.ID}

	f.flour = f.ingredient(t, "flour", "g")
	f.sugar = f.ingredient(t, "sugar", "g")
	f.eggs = f.ingredient(t, "eggs", "pcs")

	breakfast, err := f.svc.CreateTag(ctx, "Breakfast", "#e26c2d", "breakfast")
	require.NoError(t, err)
	dinner, err := f.svc.CreateTag(ctx, "Dinner", "#49B64E", "dinner")
	require.NoError(t, err)
	f.breakfast, f.dinner = *breakfast, *dinner
	return f
}

func (f *fixture) ingredient(t *testing.T, name, unit string) models.Ingredient {
	t.Helper()
	ing, err := f.svc.EnsureIngredient(f.ctx, name, unit)
	require.NoError(t, err)
	return *ing
}

func recipeInput(name string, tags []uint, ings ...IngredientAmount) RecipeInput {
	text := "mix and bake"
	cooking := 30
	image := pngDataURI
	return RecipeInput{
		Name:        &name,
		Text:        &text,
		CookingTime: &cooking,
		Image:       &image,
		Ingredients: ings,
		Tags:        tags,
	}
}

func (f *fixture) recipe(t *testing.T, who auth.Identity, name string, ings ...IngredientAmount) *RecipeView {
	t.Helper()
	view, err := f.svc.CreateRecipe(f.ctx, who, recipeInput(name, []uint{f.breakfast.ID}, ings...))
	require.NoError(t, err)
	return view
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := KindOf(err)
	require.True(t, ok, "expected service error, got %v", err)
	require.Equal(t, kind, got, err.Error())
}

func firstPage() gormtool.Pagination {
	return paging(1, gormtool.DefaultPageSize)
}

func paging(page, size int) gormtool.Pagination {
	return gormtool.Pagination{Page: page, PageSize: size}
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchIngredients(t *testing.T) {
	f := newFixture(t)
	f.ingredient(t, "Flaxseed", "g")
	f.ingredient(t, "50%_mix", "g")

	names := func(q string) []string {
		items, err := f.svc.SearchIngredients(f.ctx, q)
		require.NoError(t, err)
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Name
		}
		return out
	}

	assert.Equal(t, []string{"Flaxseed", "flour"}, names("FL"))
	assert.Equal(t, []string{"flour"}, names("flo"))
	assert.Len(t, names(""), 5)
	assert.Empty(t, names("our"), "prefix only, not substring")
	assert.Equal(t, []string{"50%_mix"}, names("50%"))
	assert.Empty(t, names("%"), "wildcards are literal")
	assert.Empty(t, names("_"))
}

func TestSearchIngredientsNonASCII(t *testing.T) {
	f := newFixture(t)
	flour := f.ingredient(t, "Мука", "г")
	f.ingredient(t, "Молоко", "мл")

	for _, q := range []string{"Мука", "Мук", "мук", "МУК"} {
		items, err := f.svc.SearchIngredients(f.ctx, q)
		require.NoError(t, err)
		require.Len(t, items, 1, q)
		assert.Equal(t, flour.ID, items[0].ID, q)
	}

	items, err := f.svc.SearchIngredients(f.ctx, "мо")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Молоко", items[0].Name)
}

func TestEnsureIngredient(t *testing.T) {
	f := newFixture(t)

	again, err := f.svc.EnsureIngredient(f.ctx, " flour ", "g")
	require.NoError(t, err)
	assert.Equal(t, f.flour.ID, again.ID)

	kg, err := f.svc.EnsureIngredient(f.ctx, "flour", "kg")
	require.NoError(t, err)
	assert.NotEqual(t, f.flour.ID, kg.ID, "same name with another unit is a distinct ingredient")

	_, err = f.svc.EnsureIngredient(f.ctx, "", "g")
	requireKind(t, err, KindValidation)

	got, err := f.svc.GetIngredient(f.ctx, kg.ID)
	require.NoError(t, err)
	assert.Equal(t, "kg", got.MeasurementUnit)

	_, err = f.svc.GetIngredient(f.ctx, 9999)
	requireKind(t, err, KindNotFound)
}

func TestTags(t *testing.T) {
	f := newFixture(t)

	tags, err := f.svc.ListTags(f.ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "#E26C2D", tags[0].Color)

	_, err = f.svc.CreateTag(f.ctx, "Lunch", "red", "lunch")
	requireKind(t, err, KindValidation)
	_, err = f.svc.CreateTag(f.ctx, "Lunch", "#123456", "lunch time")
	requireKind(t, err, KindValidation)
	_, err = f.svc.CreateTag(f.ctx, "Breakfast", "#123456", "brunch")
	requireKind(t, err, KindConflict)

	lunch, err := f.svc.CreateTag(f.ctx, "Lunch", "#123456", "lunch")
	require.NoError(t, err)

	// 新建标签后列表缓存失效
	tags, err = f.svc.ListTags(f.ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 3)

	got, err := f.svc.GetTag(f.ctx, lunch.ID)
	require.NoError(t, err)
	assert.Equal(t, "lunch", got.Slug)

	_, err = f.svc.GetTag(f.ctx, 9999)
	requireKind(t, err, KindNotFound)
}

package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/models"
)

const tagListCacheKey = "tags:all"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// SearchIngredients name 为空时返回全部，否则按名称前缀（不区分大小写）匹配
func (s *Service) SearchIngredients(ctx context.Context, name string) ([]models.Ingredient, error) {
	start := time.Now()
	qb := &gormtool.QueryBuilder{
		Sorts: []gormtool.SortCondition{{Field: "name", Direction: "ASC"}, {Field: "id", Direction: "ASC"}},
	}
	if name = strings.TrimSpace(name); name != "" {
		qb.Where("name_lower", "PREFIX", strings.ToLower(name))
	}

	var out []models.Ingredient
	err := s.crud.BuildQuery(s.crud.DB.WithContext(ctx), qb).Find(&out).Error
	s.crud.LogOperation(ctx, "ingredient_search", &models.Ingredient{}, time.Since(start), err, map[string]interface{}{"name": name})
	if err != nil {
		return nil, fmt.Errorf("search ingredients: %w", err)
	}
	return out, nil
}

func (s *Service) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := s.crud.Cached(ctx, s.crud.GenerateCacheKey(&ing, id), &ing, func() error {
		return s.crud.First(ctx, &ing, id)
	})
	if gormtool.IsNotFound(err) {
		return nil, notFound("ingredient", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient %d: %w", id, err)
	}
	return &ing, nil
}

// EnsureIngredient 按 (name, unit) 取或建
func (s *Service) EnsureIngredient(ctx context.Context, name, unit string) (*models.Ingredient, error) {
	name, unit = strings.TrimSpace(name), strings.TrimSpace(unit)
	if name == "" {
		return nil, invalid("name", "must not be empty")
	}
	if unit == "" {
		return nil, invalid("measurement_unit", "must not be empty")
	}
	ing := models.Ingredient{Name: name, MeasurementUnit: unit}
	err := s.crud.DB.WithContext(ctx).
		Where(models.Ingredient{Name: name, MeasurementUnit: unit}).
		FirstOrCreate(&ing).Error
	if err != nil {
		return nil, fmt.Errorf("ensure ingredient %q: %w", name, err)
	}
	return &ing, nil
}

func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.crud.Cached(ctx, tagListCacheKey, &tags, func() error {
		return s.crud.DB.WithContext(ctx).Order("id").Find(&tags).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (s *Service) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	err := s.crud.Cached(ctx, s.crud.GenerateCacheKey(&tag, id), &tag, func() error {
		return s.crud.First(ctx, &tag, id)
	})
	if gormtool.IsNotFound(err) {
		return nil, notFound("tag", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %d: %w", id, err)
	}
	return &tag, nil
}

// CreateTag 标签由运营维护；name、color、slug 均唯一
func (s *Service) CreateTag(ctx context.Context, name, color, slug string) (*models.Tag, error) {
	switch {
	case strings.TrimSpace(name) == "":
		return nil, invalid("name", "must not be empty")
	case !hexColor.MatchString(color):
		return nil, invalid("color", "must be a #RRGGBB hex code")
	case !slugPattern.MatchString(slug):
		return nil, invalid("slug", "must contain only letters, digits, '-' or '_'")
	}
	tag := models.Tag{Name: name, Color: strings.ToUpper(color), Slug: slug}
	if err := s.crud.DB.WithContext(ctx).Create(&tag).Error; err != nil {
		if gormtool.IsDuplicate(err) {
			return nil, conflict("tag with this name, color or slug already exists")
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}
	if err := s.crud.DeleteFromCache(ctx, tagListCacheKey); err != nil {
		s.crud.Logger.Warn(ctx, "cache invalidate failed", map[string]interface{}{"key": tagListCacheKey, "error": err.Error()})
	}
	return &tag, nil
}

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studieren/foodgram/auth"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/models"
)

// AuthorView 用户及调用者是否已关注；Recipes 只在订阅列表里填充
type AuthorView struct {
	User         models.User
	Followed     bool
	Recipes      []models.Recipe
	RecipesCount int64
}

// Subscribe follower -> author；重复关注与关注自己都返回 Conflict
func (s *Service) Subscribe(ctx context.Context, who auth.Identity, authorID uint, recipesLimit int) (*AuthorView, error) {
	if who.Anonymous() {
		return nil, ErrUnauthorized
	}
	author, err := s.findUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if author.ID == who.UserID {
		return nil, conflict("cannot subscribe to yourself")
	}

	start := time.Now()
	exists, err := s.crud.Exists(ctx, &models.Subscription{}, "author_id = ? AND follower_id = ?", authorID, who.UserID)
	if err == nil && exists {
		return nil, conflict("already subscribed to this user")
	}
	if err == nil {
		err = s.crud.DB.WithContext(ctx).Omit("Author", "Follower").
			Create(&models.Subscription{AuthorID: authorID, FollowerID: who.UserID}).Error
	}
	s.crud.LogOperation(ctx, "subscribe", &models.Subscription{}, time.Since(start), err, map[string]interface{}{
		"author_id": authorID, "follower_id": who.UserID,
	})
	if gormtool.IsDuplicate(err) {
		return nil, conflict("already subscribed to this user")
	}
	if errors.Is(err, models.ErrSelfSubscription) {
		return nil, conflict("cannot subscribe to yourself")
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	views, err := s.authorViews(ctx, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	views[0].Followed = true
	return &views[0], nil
}

func (s *Service) Unsubscribe(ctx context.Context, who auth.Identity, authorID uint) error {
	if who.Anonymous() {
		return ErrUnauthorized
	}
	if _, err := s.findUser(ctx, authorID); err != nil {
		return err
	}

	start := time.Now()
	res := s.crud.DB.WithContext(ctx).
		Where("author_id = ? AND follower_id = ?", authorID, who.UserID).
		Delete(&models.Subscription{})
	s.crud.LogOperation(ctx, "unsubscribe", &models.Subscription{}, time.Since(start), res.Error, map[string]interface{}{
		"author_id": authorID, "follower_id": who.UserID,
	})
	if res.Error != nil {
		return fmt.Errorf("unsubscribe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notLinked("you are not subscribed to this user")
	}
	return nil
}

// ListSubscriptions 当前用户关注的作者；recipesLimit <= 0 表示不截断
func (s *Service) ListSubscriptions(ctx context.Context, who auth.Identity, page gormtool.Pagination, recipesLimit int) ([]AuthorView, int64, error) {
	if who.Anonymous() {
		return nil, 0, ErrUnauthorized
	}

	qb := &gormtool.QueryBuilder{Sorts: []gormtool.SortCondition{{Field: "users.id", Direction: "ASC"}}}
	qb.Where("users.id", "IN", s.crud.DB.WithContext(ctx).Model(&models.Subscription{}).
		Select("author_id").Where("follower_id = ?", who.UserID))

	start := time.Now()
	var authors []models.User
	total, err := s.crud.FindPage(ctx, &authors, qb, page)
	s.crud.LogOperation(ctx, "subscription_list", &authors, time.Since(start), err, map[string]interface{}{
		"follower_id": who.UserID, "total": total,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}

	views, err := s.authorViews(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	for i := range views {
		views[i].Followed = true
	}
	return views, total, nil
}

// GetUser 带上调用者是否已关注
func (s *Service) GetUser(ctx context.Context, who auth.Identity, id uint) (*AuthorView, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &AuthorView{User: *user}
	if !who.Anonymous() && who.UserID != id {
		view.Followed, err = s.crud.Exists(ctx, &models.Subscription{}, "author_id = ? AND follower_id = ?", id, who.UserID)
		if err != nil {
			return nil, fmt.Errorf("check subscription: %w", err)
		}
	}
	return view, nil
}

func (s *Service) Me(ctx context.Context, who auth.Identity) (*AuthorView, error) {
	if who.Anonymous() {
		return nil, ErrUnauthorized
	}
	return s.GetUser(ctx, who, who.UserID)
}

// CreateUser 用户由认证服务同步过来；这里供初始化与测试使用
func (s *Service) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	if u.Username == "" {
		return nil, invalid("username", "this field is required")
	}
	if u.Email == "" {
		return nil, invalid("email", "this field is required")
	}
	if err := s.crud.DB.WithContext(ctx).Create(&u).Error; err != nil {
		if gormtool.IsDuplicate(err) {
			return nil, conflict("user with this username or email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *Service) findUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.crud.First(ctx, &user, id); err != nil {
		if gormtool.IsNotFound(err) {
			return nil, notFound("user", id)
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

// authorViews 作者的食谱总数与最新的 recipesLimit 条食谱
func (s *Service) authorViews(ctx context.Context, authors []models.User, recipesLimit int) ([]AuthorView, error) {
	views := make([]AuthorView, len(authors))
	if len(authors) == 0 {
		return views, nil
	}
	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
		views[i].User = a
	}

	var counts []struct {
		AuthorID uint
		Total    int64
	}
	db := s.crud.DB.WithContext(ctx)
	err := db.Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", ids).
		Group("author_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count recipes: %w", err)
	}
	byAuthor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byAuthor[c.AuthorID] = c.Total
	}

	for i := range views {
		views[i].RecipesCount = byAuthor[views[i].User.ID]
		q := db.Where("author_id = ?", views[i].User.ID).Order("created_at DESC").Order("id DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		if err := q.Find(&views[i].Recipes).Error; err != nil {
			return nil, fmt.Errorf("load recipes of %d: %w", views[i].User.ID, err)
		}
	}
	return views, nil
}

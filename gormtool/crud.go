// gormtool\crud.go
package gormtool

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 常量定义
const (
	CacheTTL        = 5 * time.Minute
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

type Response struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Page    *Pagination       `json:"page,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// QueryCondition 查询条件结构
type QueryCondition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"` // =, !=, >, <, >=, <=, IN, PREFIX
	Value    interface{} `json:"value"`
}

// SortCondition 排序条件
type SortCondition struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // ASC, DESC
}

// QueryBuilder 查询构建器
type QueryBuilder struct {
	Conditions []QueryCondition `json:"conditions"`
	Sorts      []SortCondition  `json:"sorts"`
	Preloads   []string         `json:"preloads"`
}

// Where 追加条件，链式调用
func (qb *QueryBuilder) Where(field, op string, value interface{}) *QueryBuilder {
	qb.Conditions = append(qb.Conditions, QueryCondition{Field: field, Operator: op, Value: value})
	return qb
}

// CRUDTool 数据库 + 缓存 + 日志
type CRUDTool struct {
	DB        *gorm.DB
	Cache     Cache
	Logger    Logger
	EnableLog bool
	TTL       time.Duration
}

// NewCRUDTool cache 为 nil 时不走缓存
func NewCRUDTool(db *gorm.DB, cache Cache, logger Logger) *CRUDTool {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if cache == nil {
		cache = noopCache{}
	}

	return &CRUDTool{
		DB:        db,
		Cache:     cache,
		Logger:    logger,
		EnableLog: true,
		TTL:       CacheTTL,
	}
}

// LogOperation 记录操作日志并上报耗时
//
//	t.LogOperation(ctx, "recipe_create", &models.Recipe{}, time.Since(start), err, map[string]interface{}{
//		"author_id": id,
//	})
func (t *CRUDTool) LogOperation(ctx context.Context, operation string, model interface{}, duration time.Duration, err error, additionalFields map[string]interface{}) {
	observeOperation(operation, duration, err)
	if !t.EnableLog {
		return
	}

	fields := map[string]interface{}{
		"operation": operation,
		"duration":  duration.String(),
	}
	if model != nil {
		fields["model"] = fmt.Sprintf("%T", model)
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	for k, v := range additionalFields {
		fields[k] = v
	}

	if err != nil {
		t.Logger.Warn(ctx, "operation failed", fields)
	} else {
		t.Logger.Debug(ctx, "operation ok", fields)
	}
}

// 事务相关方法
type TxFunc func(tx *gorm.DB) error

// WithTransaction 执行事务
func (t *CRUDTool) WithTransaction(ctx context.Context, fn TxFunc) error {
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// First 按主键查询，支持预加载
func (t *CRUDTool) First(ctx context.Context, model interface{}, id uint, preloads ...string) error {
	db := t.DB.WithContext(ctx)
	for _, preload := range preloads {
		db = db.Preload(preload)
	}
	return db.First(model, id).Error
}

// Exists 条件计数 > 0
func (t *CRUDTool) Exists(ctx context.Context, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	err := t.DB.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&n).Error
	return n > 0, err
}

// 缓存相关方法
func (t *CRUDTool) GenerateCacheKey(model interface{}, id interface{}) string {
	return fmt.Sprintf("%T:%v", model, id)
}

func (t *CRUDTool) GetFromCache(ctx context.Context, key string, result interface{}) bool {
	return t.Cache.Get(ctx, key, result)
}

func (t *CRUDTool) SetToCache(ctx context.Context, key string, data interface{}) error {
	return t.Cache.Set(ctx, key, data, t.TTL)
}

func (t *CRUDTool) DeleteFromCache(ctx context.Context, key string) error {
	return t.Cache.Delete(ctx, key)
}

// Cached 先查缓存，未命中时 load 并回写
func (t *CRUDTool) Cached(ctx context.Context, key string, result interface{}, load func() error) error {
	if t.GetFromCache(ctx, key, result) {
		cacheRequests.WithLabelValues("hit").Inc()
		return nil
	}
	cacheRequests.WithLabelValues("miss").Inc()
	if err := load(); err != nil {
		return err
	}
	if err := t.SetToCache(ctx, key, result); err != nil {
		t.Logger.Warn(ctx, "cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return nil
}

// BuildQuery 查询构建器方法
func (t *CRUDTool) BuildQuery(db *gorm.DB, qb *QueryBuilder) *gorm.DB {
	if qb == nil {
		return db
	}

	for _, cond := range qb.Conditions {
		switch cond.Operator {
		case "=", "!=", ">", "<", ">=", "<=":
			db = db.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
		case "IN":
			db = db.Where(fmt.Sprintf("%s IN (?)", cond.Field), cond.Value)
		case "PREFIX":
			// 大小写不敏感的前缀匹配
			prefix := escapeLike(strings.ToLower(fmt.Sprint(cond.Value)))
			db = db.Where(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", cond.Field), prefix+"%")
		}
	}

	for _, sort := range qb.Sorts {
		db = db.Order(fmt.Sprintf("%s %s", sort.Field, sort.Direction))
	}

	for _, preload := range qb.Preloads {
		db = db.Preload(preload)
	}

	return db
}

// FindPage 分页查询，返回总数；计数只带条件，不带排序与预加载
func (t *CRUDTool) FindPage(ctx context.Context, models interface{}, qb *QueryBuilder, page Pagination) (int64, error) {
	if qb == nil {
		qb = &QueryBuilder{}
	}
	counter := t.BuildQuery(t.DB.WithContext(ctx).Model(models), &QueryBuilder{Conditions: qb.Conditions})

	var total int64
	if err := counter.Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	db := t.BuildQuery(t.DB.WithContext(ctx).Model(models), qb)
	if err := db.Limit(page.PageSize).Offset(page.Offset()).Find(models).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ParsePagination 读取 page 与 limit（兼容 pagesize）
func ParsePagination(c *gin.Context) (Pagination, error) {
	page, err := positiveQuery(c, "page", 1)
	if err != nil {
		return Pagination{}, err
	}
	var size int
	if raw := c.Query("limit"); raw != "" {
		size, err = positiveQuery(c, "limit", DefaultPageSize)
	} else {
		size, err = positiveQuery(c, "pagesize", DefaultPageSize)
	}
	if err != nil {
		return Pagination{}, err
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Pagination{Page: page, PageSize: size}, nil
}

func positiveQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return n, nil
}

// IsDuplicate 唯一约束冲突（需要 gorm.Config.TranslateError）
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

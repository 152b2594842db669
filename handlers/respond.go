package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/logging"
	"github.com/studieren/foodgram/service"
)

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gormtool.Response{Code: status, Message: "success", Data: data})
}

func okPage(c *gin.Context, data interface{}, page gormtool.Pagination, total int64) {
	page.Total = int(total)
	c.JSON(http.StatusOK, gormtool.Response{Code: http.StatusOK, Message: "success", Data: data, Page: &page})
}

func statusOf(kind service.Kind) int {
	switch kind {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindNotLinked, service.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail 业务错误按类型映射状态码；其余错误只记录日志，对外返回通用信息
func fail(c *gin.Context, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		status := statusOf(se.Kind)
		c.AbortWithStatusJSON(status, gormtool.Response{Code: status, Message: se.Message, Errors: se.Fields})
		return
	}
	_ = c.Error(err)
	logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gormtool.Response{
		Code:    http.StatusInternalServerError,
		Message: "internal server error",
	})
}

func badRequest(field, reason string) error {
	return &service.Error{
		Kind:    service.KindValidation,
		Message: field + ": " + reason,
		Fields:  map[string]string{field: reason},
	}
}

// bindJSON 绑定失败统一转成 Validation 错误
func bindJSON(c *gin.Context, dst interface{}) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &verrs):
		return validationError(verrs)
	case errors.As(err, &typeErr):
		return badRequest(typeErr.Field, "must be of type "+typeErr.Type.String())
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return badRequest("body", "malformed JSON")
	default:
		return badRequest("body", err.Error())
	}
}

func validationError(errs validator.ValidationErrors) error {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return &service.Error{Kind: service.KindValidation, Message: "invalid request body", Fields: fields}
}

// fieldPath recipeRequest.ingredients[0].amount -> ingredients[0].amount
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case imageDataTag:
		return "must be a base64 encoded image data URI"
	default:
		return "is invalid"
	}
}

// pathID 路径中的 id 必须是正整数
func pathID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest(name, "must be a positive integer")
	}
	return uint(id), nil
}

func pagination(c *gin.Context) (gormtool.Pagination, error) {
	page, err := gormtool.ParsePagination(c)
	if err != nil {
		return page, badRequest("page", err.Error())
	}
	return page, nil
}

// optionalLimit 缺省时返回 0，表示不限制
func optionalLimit(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest(name, "must be a non-negative integer")
	}
	return n, nil
}

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"wastewise-be/middlewares"
	"wastewise-be/models"
	"wastewise-be/services"
	"wastewise-be/store"
	"wastewise-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// base is shared by every controller.
type base struct {
	svc    *services.Services
	logger *zap.Logger
}

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their json name so
// error entries match the request body.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation, models.KindConflict, models.KindDuplicate:
		return http.StatusBadRequest
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes err as an error envelope. Errors that are not domain
// errors are logged and reported as a generic 500.
func (b *base) respondError(c *gin.Context, err error) {
	if appErr, ok := models.AsAppError(err); ok {
		c.JSON(statusFor(appErr.Kind), models.NewErrorResponse(appErr.Message, appErr.Fields...))
		return
	}
	middlewares.RequestLogger(c, b.logger).Error("request failed",
		zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.NewErrorResponse("Internal server error"))
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.NewSuccessResponse(message, data))
}

func respondList[T any](c *gin.Context, res services.ListResult[T]) {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	resp := models.NewSuccessResponse("", items)
	resp.Pagination = res.Pagination
	c.JSON(http.StatusOK, resp)
}

// bindJSON decodes the body into obj and answers 400 with field errors when
// it does not validate.
func bindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]models.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, models.FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("Validation failed", fields...))
		return false
	}
	c.JSON(http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
	return false
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

func badRequest(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, models.NewErrorResponse("Validation failed", models.FieldError{Field: field, Message: message}))
}

// principal returns the caller set by AuthMiddleware.
func principal(c *gin.Context) models.Principal {
	p, _ := middlewares.GetPrincipal(c)
	return p
}

func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, name, "must be a valid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalID parses an optional hex id; an empty value yields nil.
func optionalID(c *gin.Context, field, value string) (*primitive.ObjectID, bool) {
	if value == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		badRequest(c, field, "must be a valid id")
		return nil, false
	}
	return &id, true
}

func optionalIDs(c *gin.Context, field string, values []string) ([]primitive.ObjectID, bool) {
	if values == nil {
		return nil, true
	}
	ids, err := utils.ParseObjectIDs(values)
	if err != nil {
		badRequest(c, field, "must contain valid ids")
		return nil, false
	}
	return ids, true
}

func optionalDate(c *gin.Context, field, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := utils.ParseDate(value)
	if err != nil {
		badRequest(c, field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		return nil, false
	}
	return &t, true
}

func optionalBool(c *gin.Context, field, value string) (*bool, bool) {
	switch strings.ToLower(value) {
	case "":
		return nil, true
	case "true", "1":
		return ptr(true), true
	case "false", "0":
		return ptr(false), true
	}
	badRequest(c, field, "must be true or false")
	return nil, false
}

func page(c *gin.Context) store.Page {
	p, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"))
	return store.Page{Page: p, Limit: limit}
}

func ptr[T any](v T) *T { return &v }

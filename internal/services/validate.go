package services

import (
	"errors"
	"reflect"
	"strings"

	apperrors "useradmin/pkg/errors"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息里使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct 校验失败统一返回 VALIDATION
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return apperrors.Validation("%s is required", fe.Field())
		case "oneof":
			return apperrors.Validation("%s must be one of [%s]", fe.Field(), fe.Param())
		default:
			return apperrors.Validation("invalid %s: failed on %s", fe.Field(), fe.Tag())
		}
	}
	return apperrors.Validation("%s", err.Error())
}

// storeError 把 gorm 错误转换为业务错误
func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound("%s", notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict("duplicate record")
	default:
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return apperrors.Internal("database error", err)
	}
}

package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Init hooks into gin's validator and registers the owner_id rule.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate = v
		_ = validate.RegisterValidation("owner_uid", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s != "" && !strings.ContainsAny(s, " :")
		})
	}
}

// GetErrorMsg translates validation errors into readable messages
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var errMsgs []string
		for _, e := range validationErrors {
			field := e.Field()
			param := e.Param()

			switch e.Tag() {
			case "required":
				errMsgs = append(errMsgs, fmt.Sprintf("%s is required", field))
			case "min":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be at least %s", field, param))
			case "max":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be at most %s", field, param))
			case "oneof":
				errMsgs = append(errMsgs, fmt.Sprintf("%s must be one of [%s]", field, param))
			case "owner_uid":
				errMsgs = append(errMsgs, fmt.Sprintf("%s is not a valid member uid", field))
			default:
				errMsgs = append(errMsgs, fmt.Sprintf("%s failed validation (%s)", field, e.Tag()))
			}
		}
		return strings.Join(errMsgs, "; ")
	}
	return "invalid request parameters"
}

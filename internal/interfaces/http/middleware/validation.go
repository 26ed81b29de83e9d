package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator reports field errors by their JSON names and registers
// the settlement enum tags.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	RegisterValidators(v)
}

// RegisterValidators installs the tag name function and custom tags on v
func RegisterValidators(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("invoice_kind", func(fl validator.FieldLevel) bool {
		return trade.InvoiceKind(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("discount_type", func(fl validator.FieldLevel) bool {
		return trade.DiscountType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("tender_method", func(fl validator.FieldLevel) bool {
		return trade.TenderMethod(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("document_type", func(fl validator.FieldLevel) bool {
		return fiscal.DocumentType(fl.Field().String()).IsValid()
	})
}

// FormatValidationErrors converts binding errors into a VALIDATION_ERROR
// envelope. Errors that are not field validation failures (malformed JSON)
// produce no details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(e),
				Message: getValidationMessage(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes the validation envelope with status 400
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(dto.GetHTTPStatus(dto.ErrCodeValidation), FormatValidationErrors(err, GetRequestID(c)))
}

// fieldPath drops the root struct name: "AddLineRequest.discount.value"
// becomes "discount.value".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " items"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gtfield":
		return "Must be greater than " + e.Param()
	case "invoice_kind":
		return "Must be one of: credit-fiscal final-consumer special-regime governmental"
	case "discount_type":
		return "Must be one of: PERCENTAGE AMOUNT"
	case "tender_method":
		return "Must be one of: cash card transfer other"
	case "document_type":
		return "Must be one of: 01 02 14 15"
	default:
		return "Invalid value"
	}
}

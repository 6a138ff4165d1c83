package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const maxCandidateNameLength = 200

// Validator wraps struct-tag validation together with the proctoring business rules
type Validator struct {
	structValidator *validator.Validate
}

func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate returns ValidationErrors describing every failed rule, or nil
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// ValidateSample checks one perception tick before it reaches the engine.
// Only a negative face count is rejected; labels are never filtered so no finding of the tick is lost.
func (v *Validator) ValidateSample(sample *models.DetectionSample) error {
	if sample == nil {
		return nil
	}
	return v.Validate(sample)
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("candidate_name", validateCandidateName)
	validate.RegisterValidation("export_format", validateExportFormat)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateCandidateName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	return name != "" && len([]rune(name)) <= maxCandidateNameLength
}

func validateExportFormat(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "json", "xlsx":
		return true
	}
	return false
}

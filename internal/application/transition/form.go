package transition

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TransitionForm is the user input collected for a transition
type TransitionForm struct {
	UserID      string `json:"user_id"`
	WarehouseID string `json:"warehouse_id"`
}

const (
	FieldUser      = "user_id"
	FieldWarehouse = "warehouse_id"
)

// formValidator checks the fields a transition asks for. Fields the
// transition does not use are ignored.
type formValidator struct {
	validate *validator.Validate
}

func newFormValidator() *formValidator {
	return &formValidator{validate: validator.New()}
}

// check returns field errors keyed by json field name
func (f *formValidator) check(form TransitionForm, needUser, needWarehouse bool) map[string]string {
	errs := make(map[string]string)
	if needUser {
		if msg := f.field(form.UserID, "required,uuid"); msg != "" {
			errs[FieldUser] = msg
		}
	}
	if needWarehouse {
		if msg := f.field(form.WarehouseID, "required,uuid"); msg != "" {
			errs[FieldWarehouse] = msg
		}
	}
	return errs
}

func (f *formValidator) field(value, tag string) string {
	err := f.validate.Var(strings.TrimSpace(value), tag)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Tag() {
		case "required":
			return "This field is required"
		case "uuid":
			return "Invalid UUID format"
		}
	}
	return "Invalid value"
}

// parseFormID parses an ID that already passed validation
func parseFormID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

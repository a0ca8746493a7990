package knowledge

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"kaizen/internal/errors"
)

// validate is the shared validator for mutation inputs.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	custom := map[string]validator.Func{
		"kzname": func(fl validator.FieldLevel) bool {
			return namePattern.MatchString(fl.Field().String())
		},
		"scopeid": func(fl validator.FieldLevel) bool {
			_, _, err := SplitScopeID(fl.Field().String())
			return err == nil
		},
		"tier": func(fl validator.FieldLevel) bool {
			_, err := ParseTier(fl.Field().String())
			return err == nil
		},
		"tasksize": func(fl validator.FieldLevel) bool {
			_, err := ParseTaskSize(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range custom {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("knowledge: register %s validation: %v", tag, err))
		}
	}
}

// NamespaceInput creates a namespace.
type NamespaceInput struct {
	Name        string `json:"name" validate:"required,min=2,max=64,kzname"`
	Description string `json:"description" validate:"required,min=2,max=64"`
}

// NamespaceUpdate renames a namespace or changes its description.
type NamespaceUpdate struct {
	Name        string  `json:"name" validate:"required"`
	NewName     *string `json:"newName,omitempty" validate:"omitempty,min=2,max=64,kzname"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=2,max=64"`
}

// ScopeInput creates a scope. Tier defaults to PROJECT.
type ScopeInput struct {
	ID          string   `json:"scope" validate:"required,scopeid"`
	Description string   `json:"description" validate:"required,min=2,max=64"`
	Tier        string   `json:"tier,omitempty" validate:"omitempty,tier"`
	Parents     []string `json:"parents,omitempty" validate:"dive,scopeid"`
}

// ScopeUpdate changes a scope. Parents replaces the whole parent set and
// is applied before AddParents and RemoveParents.
type ScopeUpdate struct {
	ID            string    `json:"scope" validate:"required,scopeid"`
	NewName       *string   `json:"newName,omitempty" validate:"omitempty,min=2,max=64,kzname"`
	Description   *string   `json:"description,omitempty" validate:"omitempty,min=2,max=64"`
	Tier          *string   `json:"tier,omitempty" validate:"omitempty,tier"`
	Parents       *[]string `json:"parents,omitempty"`
	AddParents    []string  `json:"addParents,omitempty" validate:"dive,scopeid"`
	RemoveParents []string  `json:"removeParents,omitempty" validate:"dive,scopeid"`
}

// EntryInput writes a knowledge entry.
type EntryInput struct {
	ScopeID       string        `json:"scope" validate:"required,scopeid"`
	Content       string        `json:"content" validate:"required"`
	Context       string        `json:"context" validate:"required"`
	TaskSize      string        `json:"taskSize,omitempty" validate:"omitempty,tasksize"`
	Metaknowledge Metaknowledge `json:"metaknowledge,omitempty"`
}

// EntryUpdate changes an entry. Nil fields are left untouched and
// ClearTaskSize turns the entry into a principle.
type EntryUpdate struct {
	ID            string         `json:"id" validate:"required"`
	Content       *string        `json:"content,omitempty" validate:"omitempty,min=1"`
	Context       *string        `json:"context,omitempty" validate:"omitempty,min=1"`
	ScopeID       *string        `json:"scope,omitempty" validate:"omitempty,scopeid"`
	TaskSize      *string        `json:"taskSize,omitempty" validate:"omitempty,tasksize"`
	ClearTaskSize bool           `json:"clearTaskSize,omitempty"`
	Metaknowledge *Metaknowledge `json:"metaknowledge,omitempty"`
}

// Validate checks a mutation input and converts failures into
// INVALID_PARAMETER or INVALID_TASK_SIZE_FILTER errors.
func Validate(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return validateExtra(input)
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewInvalidParameterError("input", err.Error())
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "tasksize":
		return errors.NewInvalidTaskSizeError(fmt.Sprint(fe.Value()))
	case "required":
		return errors.NewInvalidParameterError(field, "is required")
	case "min", "max":
		return errors.NewInvalidParameterError(field, fmt.Sprintf("length must satisfy %s=%s", fe.Tag(), fe.Param()))
	case "kzname":
		return errors.NewInvalidParameterError(field, "may only contain lowercase letters, digits, '-' and '_'")
	case "scopeid":
		return errors.NewInvalidParameterError(field, fmt.Sprintf("%v is not a valid namespace:name scope id", fe.Value()))
	case "tier":
		return errors.NewInvalidParameterError(field, "must be one of GENERAL, PRODUCT, GROUP, PROJECT")
	}
	return errors.NewInvalidParameterError(field, fe.Error())
}

func validateExtra(input interface{}) error {
	switch in := input.(type) {
	case *EntryInput:
		return validateText(in.Content, in.Context, in.Metaknowledge)
	case *EntryUpdate:
		if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
			return errors.NewInvalidParameterError("content", "cannot be blank")
		}
		if in.Context != nil && strings.TrimSpace(*in.Context) == "" {
			return errors.NewInvalidParameterError("context", "cannot be blank")
		}
		if in.TaskSize != nil && in.ClearTaskSize {
			return errors.NewInvalidParameterError("taskSize", "cannot set and clear task size together")
		}
		if in.Metaknowledge != nil {
			return validateMeta(*in.Metaknowledge)
		}
	case *ScopeUpdate:
		if in.Parents != nil {
			for _, p := range *in.Parents {
				if _, _, err := SplitScopeID(p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateText(content, context string, meta Metaknowledge) error {
	if strings.TrimSpace(content) == "" {
		return errors.NewInvalidParameterError("content", "cannot be blank")
	}
	if strings.TrimSpace(context) == "" {
		return errors.NewInvalidParameterError("context", "cannot be blank")
	}
	return validateMeta(meta)
}

func validateMeta(meta Metaknowledge) error {
	for _, f := range meta {
		if strings.TrimSpace(f.Label) == "" {
			return errors.NewInvalidParameterError("metaknowledge", "labels cannot be blank")
		}
	}
	return nil
}

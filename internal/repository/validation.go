package repository

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/lodging-listings/internal/aggregate"
	"github.com/iliyamo/lodging-listings/internal/model"
)

// newValidator builds the struct validator used on every write.  Field
// names in errors follow the JSON tags so they match the request payload.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// decimals are compared numerically by gte/lte
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch d := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := d.Float64()
			return f
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			f, _ := d.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})

	_ = v.RegisterValidation("property_type", func(fl validator.FieldLevel) bool {
		return model.PropertyType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("bed_type", func(fl validator.FieldLevel) bool {
		return model.BedType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("room_type", func(fl validator.FieldLevel) bool {
		return model.RoomType(fl.Field().String()).Valid()
	})
	return v
}

// prepare normalises p in place and validates the result.
func (r *PropertyRepo) prepare(p *model.Property) error {
	if err := aggregate.Normalize(p); err != nil {
		var fe *aggregate.FieldError
		if errors.As(err, &fe) {
			return &ValidationError{Field: fe.Field, Reason: fe.Reason}
		}
		return &ValidationError{Field: "property", Reason: err.Error()}
	}
	err := r.validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fieldPath(fe.Namespace()), Reason: describe(fe)}
	}
	return &ValidationError{Field: "property", Reason: err.Error()}
}

// fieldPath drops the root struct name: "Property.address.city" -> "address.city".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "property_type":
		return "must be one of hotel, apartment, villa, resort, guesthouse, hostel"
	case "bed_type":
		return "must be one of single, double, queen, king, sofa, bunk"
	case "room_type":
		return "is not a known room type"
	}
	return "failed " + fe.Tag() + " check"
}

// Package validation checks write payloads before they are sent to the
// backend. Field names in errors are the JSON wire names.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/refresolver"
)

// Accepted layouts for the datetime tag.
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
}

var cinRegex = regexp.MustCompile(`^[A-Za-z]{1,2}[0-9]{3,8}$`)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	})

	v.RegisterValidation("datetime", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := ParseDateTime(value)
		return err == nil
	})

	v.RegisterValidation("cin", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return cinRegex.MatchString(value)
	})

	return &Validator{v: v}
}

// ValidCIN reports whether s looks like a national identity card number.
func ValidCIN(s string) bool { return cinRegex.MatchString(s) }

// ParseDateTime parses the date-time formats the backend accepts.
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q", s)
}

// FieldErrors maps a wire field name to its messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fe[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First is the first message in field order, for a single-line banner.
func (fe FieldErrors) First() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fe[k]) > 0 {
			return fe[k][0]
		}
	}
	return ""
}

// Struct validates s and returns FieldErrors, or nil when s is valid.
func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fe := FieldErrors{}
	for _, e := range ve {
		fe.Add(e.Field(), message(e))
	}
	return fe
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Ce champ est obligatoire."
	case "email":
		return "Adresse e-mail invalide."
	case "oneof":
		return "Valeur invalide, attendu : " + strings.ReplaceAll(e.Param(), " ", ", ") + "."
	case "gt":
		return "Doit être supérieur à " + e.Param() + "."
	case "gte", "min":
		if e.Kind() == reflect.String {
			return "Doit contenir au moins " + e.Param() + " caractères."
		}
		return "Doit être supérieur ou égal à " + e.Param() + "."
	case "max":
		return "Doit contenir au plus " + e.Param() + " caractères."
	case "date":
		return "Date invalide (AAAA-MM-JJ)."
	case "datetime":
		return "Date et heure invalides (AAAA-MM-JJ HH:MM)."
	case "cin":
		return "CIN invalide."
	}
	return "Valeur invalide."
}

// Ref names a foreign id carried by a payload field.
type Ref struct {
	Field string
	Kind  refresolver.Kind
	ID    int64
}

type Resolver interface {
	Resolve(ctx context.Context, kind refresolver.Kind, id int64) (refresolver.Reference, error)
}

// CheckReferences resolves each ref. Ids the backend does not know become
// field errors; any other failure is returned as err.
func CheckReferences(ctx context.Context, r Resolver, refs ...Ref) (FieldErrors, error) {
	fe := FieldErrors{}
	for _, ref := range refs {
		if ref.ID <= 0 {
			fe.Add(ref.Field, "Ce champ est obligatoire.")
			continue
		}
		_, err := r.Resolve(ctx, ref.Kind, ref.ID)
		if err == nil {
			continue
		}
		if apiclient.IsKind(err, apiclient.KindNotFound) {
			fe.Add(ref.Field, refresolver.Placeholder(ref.Kind, ref.ID)+" introuvable.")
			continue
		}
		return nil, fmt.Errorf("check %s: %w", ref.Field, err)
	}
	if len(fe) == 0 {
		return nil, nil
	}
	return fe, nil
}

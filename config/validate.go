package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every configuration error.
// Use errors.Is(err, ErrInvalid) to tell configuration errors from runtime errors.
var ErrInvalid = errors.New("invalid configuration")

// Error describes one invalid configuration field.
type Error struct {
	Field  string // dotted YAML path, e.g. "world.width"
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalid.
func (e *Error) Unwrap() error {
	return ErrInvalid
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report YAML key names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and cross-field constraints.
// All problems are reported together, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, &Error{Field: fieldPath(fe.Namespace()), Reason: describe(fe)})
		}
	}

	g := c.Genes
	if g.InitialSpeed < g.MinSpeed || g.InitialSpeed > g.MaxSpeed {
		errs = append(errs, &Error{Field: "genes.initial_speed",
			Reason: fmt.Sprintf("%d outside [%d, %d]", g.InitialSpeed, g.MinSpeed, g.MaxSpeed)})
	}
	if g.InitialAwareness < g.MinAwareness || g.InitialAwareness > g.MaxAwareness {
		errs = append(errs, &Error{Field: "genes.initial_awareness",
			Reason: fmt.Sprintf("%d outside [%d, %d]", g.InitialAwareness, g.MinAwareness, g.MaxAwareness)})
	}
	if g.InitialSize < g.MinSize || g.InitialSize > g.MaxSize {
		errs = append(errs, &Error{Field: "genes.initial_size",
			Reason: fmt.Sprintf("%g outside [%g, %g]", g.InitialSize, g.MinSize, g.MaxSize)})
	}

	// Food is always placed without replacement, so it has to fit the interior.
	// Organisms may outnumber border cells; placement then reuses cells.
	if c.World.Width > 0 && c.World.Height > 0 {
		c.ComputeDerived()
		if c.Population.FoodPerGeneration > c.Derived.InteriorCells {
			errs = append(errs, &Error{Field: "population.food_per_generation",
				Reason: fmt.Sprintf("%d exceeds %d interior cells", c.Population.FoodPerGeneration, c.Derived.InteriorCells)})
		}
	}

	return errors.Join(errs...)
}

// fieldPath turns "Config.world.width" into "world.width".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("must be > %s, got %v", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "gtefield":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "ltefield":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// Predicates to validate parameters of configuration nodes.
//
// Each function returns nil when the value is acceptable.
// Otherwise, it returns *domain.ConfigError which reason is one of domain.ErrInvalidConfig family.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/opst/alrun/pkg/domain"
	"k8s.io/apimachinery/pkg/util/sets"
)

type Number interface {
	~int | ~int32 | ~int64 | ~uint | ~float32 | ~float64
}

func finite[N Number](field string, v N) error {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.NewConfigError(domain.ErrOutOfRange, field, v, "should be finite")
	}
	return nil
}

// Positive checks v > 0.
func Positive[N Number](field string, v N) error {
	if err := finite(field, v); err != nil {
		return err
	}
	if v <= 0 {
		return domain.NewConfigError(domain.ErrOutOfRange, field, v, "should be strictly positive")
	}
	return nil
}

// NonNegative checks v >= 0.
func NonNegative[N Number](field string, v N) error {
	if err := finite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return domain.NewConfigError(domain.ErrOutOfRange, field, v, "should be positive or zero")
	}
	return nil
}

// InRange checks lower <= v <= upper.
func InRange[N Number](field string, v N, lower N, upper N) error {
	if lower > upper {
		panic(fmt.Sprintf("validate: bad range [%v, %v]", lower, upper))
	}
	if err := finite(field, v); err != nil {
		return err
	}
	if v < lower || upper < v {
		return domain.NewConfigError(
			domain.ErrOutOfRange, field, v, fmt.Sprintf("should be in [%v, %v]", lower, upper),
		)
	}
	return nil
}

// Probability checks 0 <= v <= 1.
func Probability(field string, v float64) error {
	return InRange(field, v, 0, 1)
}

// AllPositive checks every item of vs is strictly positive, and vs is not empty.
func AllPositive[N Number](field string, vs []N) error {
	if len(vs) == 0 {
		return domain.NewConfigError(domain.ErrOutOfRange, field, nil, "should not be empty")
	}
	for i, v := range vs {
		if err := Positive(fmt.Sprintf("%s[%d]", field, i), v); err != nil {
			return err
		}
	}
	return nil
}

// OneOf checks v is in supported.
func OneOf(field string, v string, supported sets.Set[string]) error {
	if supported.Has(v) {
		return nil
	}
	return domain.NewConfigError(
		domain.ErrUnsupportedValue, field, v,
		"supported values are "+strings.Join(sets.List(supported), ", "),
	)
}

// SameLength checks all lengths are equal.
func SameLength(field string, lengths ...int) error {
	for _, l := range lengths {
		if l != lengths[0] {
			return domain.NewConfigError(
				domain.ErrLengthMismatch, field, nil, fmt.Sprintf("lengths are %v", lengths),
			)
		}
	}
	return nil
}

// Implies checks "premise ⟹ conclusion".
//
// message should describe the rule.
func Implies(field string, premise bool, conclusion bool, message string) error {
	if premise && !conclusion {
		return domain.NewConfigError(domain.ErrIncompatibleFlags, field, nil, message)
	}
	return nil
}

// PathName checks v can be a name of a directory: not blank, not "." nor "..",
// and without path separators.
func PathName(field string, v string) error {
	if strings.TrimSpace(v) == "" {
		return domain.NewConfigError(domain.ErrOutOfRange, field, v, "should not be empty")
	}
	if v == "." || v == ".." {
		return domain.NewConfigError(domain.ErrUnsupportedValue, field, v, "should not be a relative path")
	}
	return NoPathSeparator(field, v)
}

// NoPathSeparator checks v does not contain path separators ("/" and "\\") nor NUL.
func NoPathSeparator(field string, v string) error {
	if strings.ContainsAny(v, "/\\\x00") {
		return domain.NewConfigError(
			domain.ErrUnsupportedValue, field, v, "should not contain path separators",
		)
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

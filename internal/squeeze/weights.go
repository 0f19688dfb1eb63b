package squeeze

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"alpha-squeeze/internal/domain"

	"github.com/go-playground/validator/v10"
)

// WeightTolerance is the allowed distance of the weight sum from 1.0.
const WeightTolerance = 0.001

var ErrInvalidWeightConfig = errors.New("invalid weight config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateWeights checks a WeightConfig before it is accepted. It never adjusts the input:
// a config whose weights do not sum to 1.0 within WeightTolerance, or whose bearish cutoff
// is not below the bullish cutoff, is rejected with a reason wrapping ErrInvalidWeightConfig.
func ValidateWeights(w domain.WeightConfig) error {
	if err := validate.Struct(w); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			reasons := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				reasons = append(reasons, describeFieldError(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidWeightConfig, strings.Join(reasons, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidWeightConfig, err)
	}

	sum := w.WeightSum()
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, expected 1.0 (tolerance %.3f)", ErrInvalidWeightConfig, sum, WeightTolerance)
	}
	if w.BearishCutoff >= w.BullishCutoff {
		return fmt.Errorf("%w: bearishCutoff %.2f must be below bullishCutoff %.2f", ErrInvalidWeightConfig, w.BearishCutoff, w.BullishCutoff)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

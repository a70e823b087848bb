package placement

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateCandidate checks the fields scoring and allocation depend on.
func ValidateCandidate(c *Candidate) error {
	if c == nil {
		return errors.New("candidate is nil")
	}
	return describe("candidate", validatorInstance().Struct(c))
}

// ValidatePosition checks the fields scoring and allocation depend on,
// including 0 <= filled_count <= capacity.
func ValidatePosition(p *Position) error {
	if p == nil {
		return errors.New("position is nil")
	}
	return describe("position", validatorInstance().Struct(p))
}

func describe(kind string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid %s: %s", kind, strings.Join(parts, "; "))
}

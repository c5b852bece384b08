package common

import (
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
)

// ValidationProblems flattens a validator error into the human-readable
// messages carried by ValidationFailed.
func ValidationProblems(err error) []string {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(invalid))
	for _, fieldErr := range invalid {
		problems = append(problems, fmt.Sprintf("%s failed %s validation", fieldErr.Field(), fieldErr.Tag()))
	}
	return problems
}

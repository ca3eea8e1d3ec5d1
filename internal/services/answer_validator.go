package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/pkg/fault"
	"github.com/paulexconde/surveyflow/pkg/visibility"
)

const dateLayout = "2006-01-02"

// Checks a single answer against its question's type and validation rules.
type AnswerValidator interface {
	// Validate returns a validation fault listing every problem, or nil.
	// Empty answers are accepted; required questions are enforced on submit.
	Validate(question models.Question, answer visibility.Answer) error
}

type answerValidatorImpl struct {
	programs sync.Map // expression -> *vm.Program
}

// Instantiate the AnswerValidator.
func NewAnswerValidator() AnswerValidator {
	return &answerValidatorImpl{}
}

// ruleEnv is the environment an author's expression is evaluated in.
func ruleEnv(value string, options []string) map[string]any {
	number, numeric := parseFloat(value)
	if options == nil {
		options = []string{}
	}
	return map[string]any{
		"value":   value,
		"number":  number,
		"numeric": numeric,
		"options": options,
		"count":   len(options),
	}
}

func compileRule(expression string) (*vm.Program, error) {
	return expr.Compile(expression, expr.Env(ruleEnv("", nil)))
}

func (v *answerValidatorImpl) program(expression string) (*vm.Program, error) {
	if cached, ok := v.programs.Load(expression); ok {
		return cached.(*vm.Program), nil
	}

	program, err := compileRule(expression)
	if err != nil {
		return nil, err
	}

	v.programs.Store(expression, program)
	return program, nil
}

func (v *answerValidatorImpl) evaluateExpression(expression string, value string, options []string) (bool, error) {
	program, err := v.program(expression)
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, ruleEnv(value, options))
	if err != nil {
		return false, err
	}

	result, ok := output.(bool)
	if !ok {
		return false, errors.New("expression did not return a boolean")
	}

	return result, nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// isBlank reports whether the respondent effectively gave no answer.
func isBlank(n visibility.Normalized) bool {
	return strings.TrimSpace(n.Scalar) == "" && len(n.Options) == 0
}

func (v *answerValidatorImpl) Validate(question models.Question, answer visibility.Answer) error {
	n, _ := visibility.Normalize(&answer)
	if isBlank(n) {
		return nil
	}

	value := strings.TrimSpace(n.Scalar)
	rules := question.ValidationRules

	var errs []string

	if len(n.Options) > 0 && question.Type != visibility.Checkbox {
		errs = append(errs, "Multiple selections are only allowed for checkbox questions")
	}

	switch question.Type {
	case visibility.Number, visibility.Rating, visibility.Scale:
		number, ok := parseFloat(value)
		if !ok {
			errs = append(errs, "Answer must be a number")
			break
		}
		if rules.MinValue != nil && number < *rules.MinValue {
			errs = append(errs, fmt.Sprintf("Answer must be at least %s", formatFloat(*rules.MinValue)))
		}
		if rules.MaxValue != nil && number > *rules.MaxValue {
			errs = append(errs, fmt.Sprintf("Answer must be at most %s", formatFloat(*rules.MaxValue)))
		}

	case visibility.Email:
		if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
			errs = append(errs, "Answer must be a valid email address")
		}

	case visibility.Date:
		if _, err := time.Parse(dateLayout, value); err != nil {
			errs = append(errs, "Answer must be a date in YYYY-MM-DD format")
		}

	case visibility.Radio, visibility.Dropdown:
		if value != "" && !hasOption(question, value) {
			errs = append(errs, fmt.Sprintf("%q is not one of the question's options", value))
		}

	case visibility.Checkbox:
		for _, selected := range n.Options {
			if !hasOption(question, selected) {
				errs = append(errs, fmt.Sprintf("%q is not one of the question's options", selected))
			}
		}

	case visibility.Text, visibility.Textarea:
		length := utf8.RuneCountInString(n.Scalar)
		if rules.MinLength != nil && length < *rules.MinLength {
			errs = append(errs, fmt.Sprintf("Answer must be at least %d characters", *rules.MinLength))
		}
		if rules.MaxLength != nil && length > *rules.MaxLength {
			errs = append(errs, fmt.Sprintf("Answer must be at most %d characters", *rules.MaxLength))
		}
	}

	if rules.Expression != "" && len(errs) == 0 {
		ok, err := v.evaluateExpression(rules.Expression, value, n.Options)
		switch {
		case err != nil:
			errs = append(errs, "Answer could not be validated: "+err.Error())
		case !ok:
			errs = append(errs, "Answer does not satisfy the question's validation rule")
		}
	}

	if len(errs) == 0 {
		return nil
	}

	for i := range errs {
		errs[i] = fmt.Sprintf("Question %d: %s", question.ID, errs[i])
	}
	return fault.NewValidationError(errs)
}

func hasOption(question models.Question, value string) bool {
	for _, o := range question.Options {
		if strings.EqualFold(o.Value, value) {
			return true
		}
	}
	return false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

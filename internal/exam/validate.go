package exam

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	optionTag  = "option"
	optionText = "{0} must be one of the options"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	locale := en.New()
	translator, _ = ut.New(locale, locale).GetTranslator("en")

	validate = validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterStructValidation(questionStructLevel, Question{})
	_ = validate.RegisterTranslation(optionTag, translator,
		func(t ut.Translator) error { return t.Add(optionTag, optionText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(optionTag, fe.Field())
			return s
		},
	)
}

// questionStructLevel requires the correct answer to be one of the options.
func questionStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.CorrectAnswer == "" {
		return
	}
	for _, o := range q.Options {
		if o == q.CorrectAnswer {
			return
		}
	}
	sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", optionTag, "")
}

// ValidateNewTest checks a test before it is stored.
func ValidateNewTest(in NewTest) error {
	verr := &ValidationError{}
	if err := validate.Struct(in); err != nil {
		var fes validator.ValidationErrors
		if !errors.As(err, &fes) {
			return err
		}
		for _, fe := range fes {
			verr.add(fieldPath(fe.Namespace()), fe.Translate(translator))
		}
	}
	if len(verr.Fields) == 0 {
		if s, e, err := clockRange(in.Date, in.StartTime, in.EndTime, nil); err == nil && !e.After(s) {
			verr.add("endTime", "endTime must be after startTime")
		}
	}
	seen := map[string]int{}
	for i, q := range in.Questions {
		if q.ID == "" {
			continue
		}
		if j, dup := seen[q.ID]; dup {
			verr.add(fmt.Sprintf("questions[%d].id", i), fmt.Sprintf("duplicates questions[%d].id", j))
			continue
		}
		seen[q.ID] = i
	}
	return verr.orNil()
}

// ValidateAnswers checks a submission body. The selected option itself is
// never checked against the question's options.
func ValidateAnswers(testID string, answers []Answer) error {
	verr := &ValidationError{}
	if strings.TrimSpace(testID) == "" {
		verr.add("testId", "testId is a required field")
	}
	seen := map[string]int{}
	for i, a := range answers {
		field := fmt.Sprintf("answers[%d].questionId", i)
		if err := validate.Struct(a); err != nil {
			verr.add(field, "questionId is a required field")
			continue
		}
		if j, dup := seen[a.QuestionID]; dup {
			verr.add(field, fmt.Sprintf("question already answered in answers[%d]", j))
			continue
		}
		seen[a.QuestionID] = i
	}
	return verr.orNil()
}

// fieldPath drops the root struct name: "NewTest.questions[0].options" -> "questions[0].options".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

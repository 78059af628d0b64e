// Package validator checks request input shape and reports every failing field at once.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the accepted date-of-birth format.
const DateLayout = "2006-01-02"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// Result reports whether input passed and, if not, one message per failing field.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

type registration struct {
	Name     string `json:"fname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpassword"`
	DOB      string `json:"dob" validate:"required,datetime=2006-01-02"`
}

type login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type pin struct {
	Title     string `json:"title" validate:"required"`
	ImgSource string `json:"img_source" validate:"required"`
}

type comment struct {
	Username    string `json:"username" validate:"required"`
	CommentText string `json:"commentText" validate:"required"`
}

// messages maps field name and failed tag to the text returned to the client.
var messages = map[string]map[string]string{
	"fname": {
		"required": "Name must not be empty",
	},
	"email": {
		"required": "Email must not be empty",
		"email":    "Email must be a valid email address",
	},
	"password": {
		"required":       "Password must not be empty",
		"strongpassword": "Password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a number",
	},
	"dob": {
		"required": "Date of birth must not be empty",
		"datetime": "Date of birth must be a valid date (YYYY-MM-DD)",
	},
	"title": {
		"required": "Title must not be empty",
	},
	"img_source": {
		"required": "Image source must not be empty",
	},
	"username": {
		"required": "Username must not be empty",
	},
	"commentText": {
		"required": "Comment must not be empty",
	},
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	if err := v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateRegistration checks the fields of a registration request.
func ValidateRegistration(name, email, password, dob string) Result {
	return check(registration{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
		DOB:      strings.TrimSpace(dob),
	})
}

// ValidateLogin checks the fields of a login request.
func ValidateLogin(email, password string) Result {
	return check(login{Email: strings.TrimSpace(email), Password: password})
}

// ValidatePin checks the required fields of a new pin.
func ValidatePin(title, imgSource string) Result {
	return check(pin{Title: strings.TrimSpace(title), ImgSource: strings.TrimSpace(imgSource)})
}

// ValidateComment checks the required fields of a new comment.
func ValidateComment(username, commentText string) Result {
	return check(comment{Username: strings.TrimSpace(username), CommentText: strings.TrimSpace(commentText)})
}

// StrongPassword reports whether password meets the registration policy.
func StrongPassword(password string) bool {
	if len(password) < MinPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func check(input any) Result {
	res := Result{Valid: true, Errors: map[string]string{}}

	err := validate.Struct(input)
	if err == nil {
		return res
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		res.Valid = false
		res.Errors["input"] = err.Error()
		return res
	}

	res.Valid = false
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, done := res.Errors[field]; done {
			continue
		}
		msg, ok := messages[field][fe.Tag()]
		if !ok {
			msg = field + " is invalid"
		}
		res.Errors[field] = msg
	}
	return res
}

// ValidateUserUpdate checks the fields present in a partial user update. Nil
// fields are not checked.
func ValidateUserUpdate(name, email, password, dob *string) Result {
	res := Result{Valid: true, Errors: map[string]string{}}
	fields := []struct {
		name  string
		value *string
		tag   string
	}{
		{"fname", name, "required"},
		{"email", email, "required,email"},
		{"password", password, "required,strongpassword"},
		{"dob", dob, "required,datetime=" + DateLayout},
	}

	for _, f := range fields {
		if f.value == nil {
			continue
		}
		value := *f.value
		if f.name != "password" {
			value = strings.TrimSpace(value)
		}
		err := validate.Var(value, f.tag)
		if err == nil {
			continue
		}
		res.Valid = false
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			if msg, ok := messages[f.name][fieldErrs[0].Tag()]; ok {
				res.Errors[f.name] = msg
				continue
			}
		}
		res.Errors[f.name] = f.name + " is invalid"
	}
	return res
}

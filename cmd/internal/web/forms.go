package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// LoginForm is the body of POST /login.
type LoginForm struct {
	Username   string `schema:"username" validate:"required,max=64"`
	Password   string `schema:"password" validate:"required"`
	RememberMe bool   `schema:"remember_me"`
	CSRF       string `schema:"csrf_token"`
}

// RegisterForm is the body of POST /register.
type RegisterForm struct {
	Username  string `schema:"username" validate:"required,max=64"`
	Email     string `schema:"email" validate:"required,email,max=120"`
	Password  string `schema:"password" validate:"required"`
	Password2 string `schema:"password2" validate:"required,eqfield=Password"`
	CSRF      string `schema:"csrf_token"`
}

// PostForm is the body of POST /posts.
type PostForm struct {
	Body string `schema:"body" validate:"required,max=140"`
	CSRF string `schema:"csrf_token"`
}

// csrfForm is the body of forms that carry nothing but the token.
type csrfForm struct {
	CSRF string `schema:"csrf_token"`
}

// fieldErrors maps a form field name to a message shown next to it.
type fieldErrors map[string]string

type formCodec struct {
	decoder  *schema.Decoder
	validate *validator.Validate
	maxBytes int64
}

func newFormCodec(maxBytes int64) *formCodec {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	d.RegisterConverter(false, convertCheckbox)

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("schema"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if maxBytes <= 0 {
		maxBytes = 64 << 10
	}
	return &formCodec{decoder: d, validate: v, maxBytes: maxBytes}
}

// errFormTooLarge is returned when the body exceeds maxBytes.
var errFormTooLarge = errors.New("form too large")

// decode parses the urlencoded body into dst. Conversion problems are
// reported as field errors; only unreadable bodies are errors.
func (c *formCodec) decode(w http.ResponseWriter, r *http.Request, dst any) (fieldErrors, error) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxBytes)
	if err := r.ParseForm(); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errFormTooLarge
		}
		return nil, err
	}

	errs := fieldErrors{}
	if err := c.decoder.Decode(dst, r.PostForm); err != nil {
		var multi schema.MultiError
		if !errors.As(err, &multi) {
			return nil, err
		}
		for field := range multi {
			errs[field] = "Not a valid value."
		}
	}
	return errs, nil
}

// check runs struct validation and merges the messages into errs.
func (c *formCodec) check(dst any, errs fieldErrors) fieldErrors {
	if errs == nil {
		errs = fieldErrors{}
	}
	err := c.validate.Struct(dst)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["form"] = "The form could not be validated."
		return errs
	}
	for _, fe := range verrs {
		if _, seen := errs[fe.Field()]; seen {
			continue
		}
		errs[fe.Field()] = fieldMessage(fe)
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "email":
		return "Invalid email address."
	case "eqfield":
		return "Field must be equal to password."
	default:
		return "Invalid value."
	}
}

// convertCheckbox accepts the values browsers and form libraries send for a ticked box.
func convertCheckbox(s string) reflect.Value {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "y", "yes", "on", "true":
		return reflect.ValueOf(true)
	default:
		return reflect.ValueOf(false)
	}
}

func (f *LoginForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

func (f *RegisterForm) normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
}

func (f *PostForm) normalize() {
	f.Body = strings.TrimSpace(f.Body)
}

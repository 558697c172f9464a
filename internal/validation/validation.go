// Package validation wires go-playground/validator into gin with Portuguese messages
// and json field names, and renders binding failures as 422 responses.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pt_translations "github.com/go-playground/validator/v10/translations/pt_BR"

	"github.com/campus-seminarios/backend/pkg/response"
)

// MessageInvalid is the top-level message of a 422 validation response.
const MessageInvalid = "Os dados informados são inválidos."

const notBlankTag = "notblank"

var (
	setupOnce  sync.Once
	setupErr   error
	translator ut.Translator
)

// Setup registers tag names, custom tags and pt_BR translations on gin's validator.
// Safe to call more than once.
func Setup() error {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			setupErr = errors.New("unexpected validator engine")
			return
		}
		v.RegisterTagNameFunc(fieldName)

		locale := pt_BR.New()
		uni := ut.New(locale, locale)
		translator, _ = uni.GetTranslator("pt_BR")
		if err := pt_translations.RegisterDefaultTranslations(v, translator); err != nil {
			setupErr = err
			return
		}

		if err := v.RegisterValidation(notBlankTag, notBlank); err != nil {
			setupErr = err
			return
		}
		setupErr = v.RegisterTranslation(notBlankTag, translator,
			func(ut.Translator) error { return nil },
			func(_ ut.Translator, fe validator.FieldError) string {
				return fe.Field() + " não pode ficar em branco"
			})
	})
	return setupErr
}

func fieldName(fld reflect.StructField) string {
	tag := fld.Tag.Get("json")
	if tag == "" {
		tag = fld.Tag.Get("form")
	}
	name := strings.SplitN(tag, ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Fields converts a binding error into per-field messages.
func Fields(err error) map[string][]string {
	out := make(map[string][]string)
	var verrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			msg := fe.Error()
			if translator != nil {
				msg = fe.Translate(translator)
			}
			out[fe.Field()] = append(out[fe.Field()], msg)
		}
	case errors.As(err, &typeErr):
		out[typeErr.Field] = append(out[typeErr.Field], "tipo de valor inválido")
	case errors.As(err, &syntaxErr):
		out["body"] = []string{"JSON malformado"}
	default:
		out["body"] = []string{err.Error()}
	}
	return out
}

// Normalizer is implemented by requests that clean decoded fields before validation,
// such as turning a blank optional string into nil.
type Normalizer interface {
	Normalize()
}

// BindJSON binds the request body into obj. On failure it writes a 422 and returns false.
// A Normalizer is normalized between decoding and validation.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := bindJSON(c, obj); err != nil {
		response.Unprocessable(c, MessageInvalid, Fields(err))
		return false
	}
	return true
}

func bindJSON(c *gin.Context, obj interface{}) error {
	n, ok := obj.(Normalizer)
	if !ok {
		return c.ShouldBindJSON(obj)
	}
	if c.Request == nil || c.Request.Body == nil {
		return errors.New("invalid request")
	}
	if err := json.NewDecoder(c.Request.Body).Decode(obj); err != nil {
		return err
	}
	n.Normalize()
	return binding.Validator.ValidateStruct(obj)
}

// Bind binds using the request content type (JSON, form or multipart).
func Bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBind(obj); err != nil {
		response.Unprocessable(c, MessageInvalid, Fields(err))
		return false
	}
	return true
}

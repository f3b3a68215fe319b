// Package i18n resolves validation message codes into localized strings.
// The engine never hardcodes user-facing text; it emits a code plus params and
// leaves wording to a Translator.
package i18n

import "strings"

// Translator retrieves a localized message for a code. params carries values
// to interpolate, e.g. "min" or "max" bounds.
type Translator interface {
	Message(code string, params map[string]string) string
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(code string, params map[string]string) string

// Message delegates to the underlying function.
func (fn TranslatorFunc) Message(code string, params map[string]string) string {
	return fn(code, params)
}

// dictTranslator is the built-in dictionary-backed Translator.
type dictTranslator struct{ locale string }

// NewDictionary returns the built-in Translator for the locale ("en" or
// "es"); unknown locales fall back to English.
func NewDictionary(locale string) Translator {
	if locale != "es" {
		locale = "en"
	}
	return dictTranslator{locale: locale}
}

func (t dictTranslator) Message(code string, params map[string]string) string {
	table := englishMessages
	if t.locale == "es" {
		table = spanishMessages
	}
	template, ok := table[code]
	if !ok {
		return code
	}
	return Interpolate(template, params)
}

// Interpolate substitutes {name} placeholders in a message template.
func Interpolate(template string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(params)*2)
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

var englishMessages = map[string]string{
	"validation.required":      "This field is required",
	"validation.type":          "Please enter a valid value",
	"validation.pattern":       "The value does not match the expected format",
	"validation.email":         "Please enter a valid email address",
	"validation.min":           "Must be at least {min}",
	"validation.max":           "Must be at most {max}",
	"validation.minLength":     "Must be at least {min} characters",
	"validation.maxLength":     "Must be at most {max} characters",
	"validation.minSelection":  "Select at least {min} option",
	"validation.date":          "Please enter a valid date",
	"form.submissionFailed":    "Submission failed, please try again",
	"form.submissionSucceeded": "Application submitted",
	"form.draftSaved":          "Draft saved",
}

var spanishMessages = map[string]string{
	"validation.required":      "Este campo es obligatorio",
	"validation.type":          "Introduce un valor válido",
	"validation.pattern":       "El valor no tiene el formato esperado",
	"validation.email":         "Introduce un correo electrónico válido",
	"validation.min":           "Debe ser como mínimo {min}",
	"validation.max":           "Debe ser como máximo {max}",
	"validation.minLength":     "Debe tener al menos {min} caracteres",
	"validation.maxLength":     "Debe tener como máximo {max} caracteres",
	"validation.minSelection":  "Selecciona al menos {min} opción",
	"validation.date":          "Introduce una fecha válida",
	"form.submissionFailed":    "No se pudo enviar, inténtalo de nuevo",
	"form.submissionSucceeded": "Solicitud enviada",
	"form.draftSaved":          "Borrador guardado",
}

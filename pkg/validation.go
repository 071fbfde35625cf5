// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
	translator    ut.Translator
)

// ValidateStruct validates s against its validate tags.
// Failures are returned as ValidationKnownFieldsError keyed by json field name.
func ValidateStruct(s any, entityType string) error {
	v, trans := newValidator()

	k := reflect.ValueOf(s).Kind()
	if k == reflect.Ptr {
		k = reflect.ValueOf(s).Elem().Kind()
	}

	if k != reflect.Struct {
		return nil
	}

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	invalid := make(map[string]string, len(validationErrors))
	required := make(map[string]string)

	for _, fieldError := range validationErrors {
		message := fieldError.Translate(trans)
		invalid[fieldError.Field()] = message

		if fieldError.Tag() == "required" {
			required[fieldError.Field()] = message
		}
	}

	return ValidateBadRequestFieldsError(required, invalid, entityType)
}

//nolint:ireturn
func newValidator() (*validator.Validate, ut.Translator) {
	validatorOnce.Do(func() {
		locale := en.New()
		uni := ut.New(locale, locale)

		translator, _ = uni.GetTranslator("en")

		validate = validator.New()

		if err := enTranslations.RegisterDefaultTranslations(validate, translator); err != nil {
			panic(err)
		}

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}

			return name
		})
	})

	return validate, translator
}

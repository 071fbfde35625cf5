// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package http

import (
	"encoding/json"
	"reflect"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/gofiber/fiber/v2"
)

// DecodeHandlerFunc is a handler which works with withBody decorator.
// It receives a struct which was decoded by withBody decorator before.
// Ex: json -> withBody -> DecodeHandlerFunc.
type DecodeHandlerFunc func(p any, c *fiber.Ctx) error

// RawHandlerFunc receives the request body as a decoded JSON object.
type RawHandlerFunc func(raw map[string]any, c *fiber.Ctx) error

// ConstructorFunc representing a constructor of any type.
type ConstructorFunc func() any

// decoderHandler decodes payload coming from requests.
type decoderHandler struct {
	handler      DecodeHandlerFunc
	constructor  ConstructorFunc
	structSource any
	entityType   string
}

func newOfType(s any) any {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return reflect.New(t).Interface()
}

// FiberHandlerFunc is a method on the decoderHandler struct. It decodes the incoming request's body to a Go struct,
// validates it, and then passes it to the wrapped handler function.
func (d *decoderHandler) FiberHandlerFunc(c *fiber.Ctx) error {
	var s any

	if d.constructor != nil {
		s = d.constructor()
	} else {
		s = newOfType(d.structSource)
	}

	if err := json.Unmarshal(c.Body(), s); err != nil {
		return WithError(c, pkg.ValidateBusinessError(constant.ErrInvalidRequestBody, d.entityType, err))
	}

	if err := pkg.ValidateStruct(s, d.entityType); err != nil {
		return WithError(c, err)
	}

	return d.handler(s, c)
}

// WithBody wraps a handler function, providing it with a struct instance created using the provided struct source.
func WithBody(s any, h DecodeHandlerFunc) fiber.Handler {
	d := &decoderHandler{
		handler:      h,
		structSource: s,
		entityType:   reflect.Indirect(reflect.ValueOf(s)).Type().Name(),
	}

	return d.FiberHandlerFunc
}

// WithDecode wraps a handler function, providing it with a struct instance created using the provided constructor function.
func WithDecode(c ConstructorFunc, h DecodeHandlerFunc) fiber.Handler {
	d := &decoderHandler{
		handler:     h,
		constructor: c,
	}

	return d.FiberHandlerFunc
}

// WithRawBody decodes the request body as a JSON object and passes it on untouched.
func WithRawBody(h RawHandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := model.DecodeRequest(c.Body())
		if err != nil {
			return WithError(c, err)
		}

		return h(raw, c)
	}
}

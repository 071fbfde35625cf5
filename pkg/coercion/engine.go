// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package coercion

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
)

// Engine turns a normalized value map into the ordered argument list of an entity.
type Engine struct {
	special            map[string]struct{}
	defaultPrincipalID int64
	now                func() time.Time
	location           *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the clock used for absent or unparseable datetimes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLocation sets the zone datetimes are parsed and formatted in.
func WithLocation(location *time.Location) Option {
	return func(e *Engine) {
		if location != nil {
			e.location = location
		}
	}
}

// WithDefaultPrincipalID sets the identity injected when no principal is present.
func WithDefaultPrincipalID(id int64) Option {
	return func(e *Engine) {
		e.defaultPrincipalID = id
	}
}

// NewEngine builds an engine whose special entities skip identity injection
// and free-text rewriting.
func NewEngine(specialEntities []string, opts ...Option) *Engine {
	e := &Engine{
		special:            make(map[string]struct{}, len(specialEntities)),
		defaultPrincipalID: constant.DefaultPrincipalID,
		now:                time.Now,
		location:           time.Local,
	}

	for _, name := range specialEntities {
		name = strings.TrimSpace(name)
		if name != "" {
			e.special[name] = struct{}{}
		}
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// IsSpecial reports whether entityName is exempt from injection and text rules.
func (e *Engine) IsSpecial(entityName string) bool {
	_, ok := e.special[entityName]

	return ok
}

// Coerce returns one argument per descriptor, in descriptor order.
// It fails with a ValidationError on the first value longer than its declared limit.
func (e *Engine) Coerce(parameters []model.ParameterDescriptor, values map[string]any, entityName string, principal *model.Principal) ([]any, error) {
	special := e.IsSpecial(entityName)
	args := make([]any, 0, len(parameters))

	for _, parameter := range parameters {
		value, present := values[parameter.Name]

		if !present && !special && parameter.Position == 1 && parameter.HasPrefix(constant.UserIDParameterPrefix) {
			value, present = e.principalID(principal), true
		}

		arg := e.coerceValue(parameter, value, present, special)

		if err := checkLength(parameter, arg, entityName); err != nil {
			return nil, err
		}

		args = append(args, arg)
	}

	return args, nil
}

func (e *Engine) coerceValue(parameter model.ParameterDescriptor, value any, present, special bool) any {
	if rule, ok := typeRules[parameter.Type]; ok {
		return rule(e, value, present)
	}

	text := ""
	if present {
		text = Stringify(value)
	}

	if special {
		return text
	}

	for _, r := range textRules {
		if r.matches(parameter.Name) {
			text = r.apply(text)
		}
	}

	return text
}

func (e *Engine) principalID(principal *model.Principal) int64 {
	if principal == nil || principal.MissingID {
		return e.defaultPrincipalID
	}

	return principal.ID
}

func checkLength(parameter model.ParameterDescriptor, arg any, entityName string) error {
	if parameter.MaxLength == nil {
		return nil
	}

	if utf8.RuneCountInString(Stringify(arg)) > *parameter.MaxLength {
		return pkg.ValidateBusinessError(constant.ErrParameterLengthExceeded, entityName, parameter.Name, *parameter.MaxLength)
	}

	return nil
}

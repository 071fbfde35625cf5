// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package coercion

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg/model"

	"github.com/shopspring/decimal"
)

// DatetimeFormat is the wire format of coerced datetime parameters.
const DatetimeFormat = "2006-01-02 15:04:05"

// datetimeLayouts are tried in order; the first that parses wins.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2006/01/02",
	"20060102",
}

// typeRule converts a raw value to the argument bound for one SQL type.
type typeRule func(e *Engine, value any, present bool) any

// typeRules is the coercion table by declared type. Types not listed are free text.
var typeRules = map[model.SQLType]typeRule{
	model.SQLTypeBit:      coerceBit,
	model.SQLTypeInt:      coerceInt,
	model.SQLTypeDecimal:  coerceDecimal,
	model.SQLTypeNumeric:  coerceDecimal,
	model.SQLTypeDatetime: coerceDatetime,
}

// textRule rewrites a free-text value when its parameter name matches.
type textRule struct {
	name    string
	matches func(parameter string) bool
	apply   func(value string) string
}

// textRules apply in order to free-text parameters of entities outside the special set.
// Substring and prefix matching are both case-sensitive on the lower-case parameter name.
var textRules = []textRule{
	{
		name: "uppercase",
		matches: func(parameter string) bool {
			return !strings.Contains(parameter, "json") &&
				!strings.Contains(parameter, "campo") &&
				!strings.Contains(parameter, "sql")
		},
		apply: strings.ToUpper,
	},
	{
		name: "compact-date",
		matches: func(parameter string) bool {
			return strings.HasPrefix(parameter, "desde") ||
				strings.HasPrefix(parameter, "hasta") ||
				strings.HasPrefix(parameter, "fecha")
		},
		apply: func(value string) string {
			return strings.ReplaceAll(value, "-", "")
		},
	},
}

func coerceBit(_ *Engine, value any, present bool) any {
	if !present {
		return false
	}

	return truthy(value)
}

func coerceInt(_ *Engine, value any, present bool) any {
	if !present {
		return int64(0)
	}

	return intval(value)
}

func coerceDecimal(_ *Engine, value any, present bool) any {
	if !present {
		return float64(0)
	}

	return floatval(strings.ReplaceAll(Stringify(value), ",", ""))
}

func coerceDatetime(e *Engine, value any, present bool) any {
	if present {
		if s, ok := value.(string); ok {
			if t, ok := e.parseTime(s); ok {
				return t.Format(DatetimeFormat)
			}
		}
	}

	return e.now().In(e.location).Format(DatetimeFormat)
}

func (e *Engine) parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	for _, layout := range datetimeLayouts {
		t, err := time.ParseInLocation(layout, s, e.location)
		if err == nil {
			return t.In(e.location), true
		}
	}

	return time.Time{}, false
}

// Stringify renders a value the way it is measured and bound as text.
// Booleans follow the "1"/"" convention of the stored procedures.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}

		return ""
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(out)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != "" && v != "0"
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String() != ""
		}

		return f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

var leadingInteger = regexp.MustCompile(`^\s*[+-]?\d+`)

func intval(value any) int64 {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}

		return 0
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return truncate(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}

		return truncate(floatval(v.String()))
	default:
		match := leadingInteger.FindString(Stringify(v))
		if match == "" {
			return 0
		}

		i, err := strconv.ParseInt(strings.TrimSpace(match), 10, 64)
		if err != nil {
			if strings.HasPrefix(strings.TrimSpace(match), "-") {
				return math.MinInt64
			}

			return math.MaxInt64
		}

		return i
	}
}

var leadingNumber = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

func floatval(s string) float64 {
	if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
		return d.InexactFloat64()
	}

	match := strings.TrimSpace(leadingNumber.FindString(s))
	if match == "" {
		return 0
	}

	d, err := decimal.NewFromString(match)
	if err != nil {
		return 0
	}

	return d.InexactFloat64()
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	if f >= math.MaxInt64 {
		return math.MaxInt64
	}

	if f <= math.MinInt64 {
		return math.MinInt64
	}

	return int64(f)
}

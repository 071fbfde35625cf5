// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"net/url"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
)

// RedactConnectionString masks credentials in a connection URI.
// It replaces the username and password with "REDACTED" and masks a password
// query parameter. Returns "[invalid-uri]" if parsing fails.
func RedactConnectionString(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "[invalid-uri]"
	}

	if u.User != nil {
		u.User = url.UserPassword(constant.RedactPlaceholder, constant.RedactPlaceholder)
	}

	query := u.Query()
	for _, key := range []string{"password", "pwd"} {
		if query.Has(key) {
			query.Set(key, constant.RedactPlaceholder)
		}
	}

	u.RawQuery = query.Encode()

	return u.String()
}

// RedactSecret returns the placeholder for any non-empty secret.
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}

	return constant.RedactPlaceholder
}

// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
)

// TenantCredential holds the connection parameters of a tenant database as
// returned by the authentication procedure. It is never mutated after lookup.
type TenantCredential struct {
	Driver   string            `json:"driver" validate:"required,oneof=sqlsrv sqlserver mssql pgsql postgres postgresql"`
	Host     string            `json:"host" validate:"required,max=255,excludesall=/?#@"`
	Port     string            `json:"port,omitempty" validate:"omitempty,numeric,max=5"`
	Database string            `json:"database" validate:"required,max=128"`
	Username string            `json:"username" validate:"required,max=128"`
	Password string            `json:"password" validate:"required"`
	Options  map[string]string `json:"options,omitempty"`
}

var credentialAliases = map[string][]string{
	"driver":   {"driver"},
	"host":     {"host", "server"},
	"port":     {"port"},
	"database": {"database", "dbname"},
	"username": {"username", "user"},
	"password": {"password"},
}

// credentialOptions are the vendor-specific row columns carried into the connection string.
var credentialOptions = []string{"encrypt", "trust_server_certificate", "sslmode", "instance", "app_name", "connect_timeout"}

// CredentialFromRow builds a credential from the authentication procedure row.
// Column names are matched case-insensitively.
func CredentialFromRow(row map[string]any) TenantCredential {
	lowered := make(map[string]any, len(row))
	for k, v := range row {
		lowered[strings.ToLower(k)] = v
	}

	pick := func(field string) string {
		for _, alias := range credentialAliases[field] {
			if v, ok := lowered[alias]; ok && v != nil {
				return strings.TrimSpace(scalarString(v))
			}
		}

		return ""
	}

	credential := TenantCredential{
		Driver:   strings.ToLower(pick("driver")),
		Host:     pick("host"),
		Port:     pick("port"),
		Database: pick("database"),
		Username: pick("username"),
		Password: pick("password"),
	}

	for _, option := range credentialOptions {
		if v, ok := lowered[option]; ok && v != nil {
			if credential.Options == nil {
				credential.Options = make(map[string]string)
			}

			credential.Options[option] = scalarString(v)
		}
	}

	return credential
}

// Fingerprint identifies the credential value without exposing it.
// Equal credentials always share a fingerprint.
func (c TenantCredential) Fingerprint() string {
	h := sha256.New()

	for _, part := range []string{c.Driver, c.Host, c.Port, c.Database, c.Username, c.Password} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s", k, c.Options[k])
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Redacted returns a copy safe to log.
func (c TenantCredential) Redacted() TenantCredential {
	redacted := c
	if redacted.Password != "" {
		redacted.Password = constant.RedactPlaceholder
	}

	return redacted
}

// String never prints the password.
func (c TenantCredential) String() string {
	return fmt.Sprintf("%s://%s@%s:%s/%s", c.Driver, c.Username, c.Host, c.Port, c.Database)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		if t {
			return "true"
		}

		return "false"
	default:
		return fmt.Sprint(t)
	}
}

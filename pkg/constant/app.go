// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import "time"

const ApplicationName = "procedure-gateway"

// DefaultPasswordPlaceholder is the placeholder value that must be replaced before production use.
const DefaultPasswordPlaceholder = "CHANGE_ME"

// RedactPlaceholder is the replacement value for masked credentials in connection strings.
const RedactPlaceholder = "REDACTED"

// HeaderRequestID carries the request id across the gateway and its logs.
const HeaderRequestID = "X-Request-Id"

// DefaultServerAddress is used when SERVER_ADDRESS is empty.
const DefaultServerAddress = ":4010"

// ServerShutdownTimeout bounds in-flight requests on graceful shutdown.
const ServerShutdownTimeout = 15 * time.Second

// DefaultBodyLimit caps request bodies at 4 MiB.
const DefaultBodyLimit = 4 * 1024 * 1024

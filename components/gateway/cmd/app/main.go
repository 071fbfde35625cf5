// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/joho/godotenv"

	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/bootstrap"
)

func main() {
	// A missing .env is normal outside local runs.
	_ = godotenv.Load()

	libCommons.InitLocalEnvConfig()

	svc, err := bootstrap.InitServers()
	if err != nil {
		// The structured logger is built inside InitServers.
		fmt.Fprintf(os.Stderr, "Failed to initialize gateway: %v\n", err)
		os.Exit(1)
	}

	svc.Run()
}

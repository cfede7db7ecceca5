// Command substrate runs the schema-driven object engine API server.
//
// Configuration is read from CONFIG_PATH (YAML) with environment variable
// overrides; DATABASE_DSN and AUTH_JWT_SECRET are required.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log"

	"github.com/substratehq/substrate/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("substrate: %v", err)
	}
}

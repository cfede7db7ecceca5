// Command mint-token issues a JWT access token for a user id with the given
// permissions. It is used to bootstrap API access before an external identity
// system is wired in.
//
// Usage:
//
//	mint-token --user=<uuid> --perms=modules:manage,objects:read,objects:write
//
// Reads the same configuration as the server, so DATABASE_DSN and
// AUTH_JWT_SECRET must be set even though no connection is opened.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/auth"
	"github.com/substratehq/substrate/internal/config"
	"github.com/substratehq/substrate/internal/domain"
)

func main() {
	userFlag := flag.String("user", "", "user id the token represents (default: random)")
	permsFlag := flag.String("perms", "", "comma-separated permission list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	userID := uuid.New()
	if *userFlag != "" {
		userID, err = uuid.Parse(*userFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --user %q: %v\n", *userFlag, err)
			os.Exit(1)
		}
	}

	var perms []string
	for _, p := range strings.Split(*permsFlag, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	if len(perms) == 0 {
		perms = []string{
			domain.PermModulesManage,
			domain.PermTypesManage,
			domain.PermObjectsRead,
			domain.PermObjectsWrite,
			domain.PermObjectsDelete,
		}
	}

	mgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	token, err := mgr.GenerateAccessToken(domain.NewActor(userID, perms...))
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	fmt.Printf("user: %s\npermissions: %s\ntoken: %s\n", userID, strings.Join(perms, ","), token)
}

// Command token prints a bearer token for an existing user id, for local
// testing and scripts. The lifetime defaults to TOKEN_TTL.
//
//	JWT_SECRET=... go run ./cmd/token -user <uuid> [-role admin] [-ttl 24h]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"bookrental/internal/auth"
	"bookrental/internal/config"
	"bookrental/internal/models"
)

func main() {
	cfg, err := config.LoadToken()
	if err != nil {
		fail("invalid configuration:\n%v", err)
	}

	userFlag := flag.String("user", "", "user id (uuid)")
	roleFlag := flag.String("role", string(models.UserRoleUser), "role claim: user or admin")
	ttl := flag.Duration("ttl", cfg.TTL, "token lifetime")
	flag.Parse()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		fail("invalid -user: %v", err)
	}
	role := models.UserRole(*roleFlag)
	if !role.Valid() {
		fail("invalid -role %q", *roleFlag)
	}

	token, err := auth.Issue(cfg.Secret, userID, role, *ttl)
	if err != nil {
		fail("issue token: %v", err)
	}
	fmt.Println(token)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

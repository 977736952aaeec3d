// Command tokengen mints HS256 access tokens for local development and
// smoke testing. Production tokens come from the identity service.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/vmaksimov/homesense/internal/server/auth"
)

func main() {

	subject := flag.String("subject", "", "tenant id to put into the sub claim")
	role := flag.String("role", "user", "role claim: admin, user or guest")
	secret := flag.String("secret", "secretKey", "shared HMAC secret")
	ttl := flag.Duration("ttl", time.Hour, "token validity")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-subject is required")
	}

	token, err := auth.GenerateToken(*subject, auth.Role(*role), []byte(*secret), *ttl)
	if err != nil {
		log.Fatalf("generating token: %v", err)
	}

	fmt.Println(token)
}

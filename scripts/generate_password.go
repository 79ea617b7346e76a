// Prints a bcrypt hash for a password, for seeding accounts by hand.
//
// Usage: go run scripts/generate_password.go <password>
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: go run scripts/generate_password.go <password>")
	}

	password := os.Args[1]

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to generate hash: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		log.Fatalf("hash verification failed: %v", err)
	}

	fmt.Println(string(hash))
}

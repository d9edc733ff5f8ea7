package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/bazaar/internal/auth"
)

const SecretKeyBytesLen = 32

// Prints random secret key
// With '--token-for <user id>' prints access token signed with '--secret-key' instead, handy for local testing
func main() {
	var secretKey, tokenFor string

	fs := pflag.NewFlagSet("gensecret", pflag.ExitOnError)
	fs.StringVarP(&secretKey, "secret-key", "s", os.Getenv("SECRET_KEY"), "Secret key to sign token with")
	fs.StringVarP(&tokenFor, "token-for", "u", "", "User id to issue access token for")
	_ = fs.Parse(os.Args[1:])

	if tokenFor == "" {
		b := make([]byte, SecretKeyBytesLen)

		_, err := rand.Read(b)
		if err != nil {
			fmt.Printf("error while generating secret key: %v", err)
			os.Exit(1)
		}

		fmt.Println(hex.EncodeToString(b))
		return
	}

	userID, err := uuid.Parse(tokenFor)
	if err != nil {
		fmt.Printf("invalid user id: %v", err)
		os.Exit(1)
	}

	verifier, err := auth.New(auth.Config{SecretKey: secretKey})
	if err != nil {
		fmt.Printf("error while creating verifier: %v", err)
		os.Exit(1)
	}

	token, _, err := verifier.Issue(userID)
	if err != nil {
		fmt.Printf("error while issuing token: %v", err)
		os.Exit(1)
	}

	fmt.Println(token)
}

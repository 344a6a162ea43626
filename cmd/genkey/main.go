package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"thesis-eval/internal/auth"
)

func main() {
	out := flag.String("out", "jwt-private-key.pem", "file to write the private key to, empty to skip")
	flag.Parse()

	// Generate ECDSA P-256 key pair
	keyPEM, err := auth.GenerateKeyPEM()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Generated ECDSA P-256 key pair for JWT signing.")
	fmt.Println("\nAdd this to your .env file as JWT_SECRET (as a single line with \\n for newlines):")
	fmt.Println("----------------------------------------")
	fmt.Printf("JWT_SECRET=%s\n", strings.ReplaceAll(string(keyPEM), "\n", `\n`))

	if *out == "" {
		return
	}

	if err := os.WriteFile(*out, keyPEM, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write private key file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nPrivate key saved to:", *out)
	fmt.Printf("To use the file-based key, set JWT_SECRET=\"$(cat %s)\"\n", *out)
}

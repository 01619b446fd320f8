package main

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"

	"qajalicense/internal/app"
)

const usage = `usage:
  license-server             run the license server
  license-server hash-key K  print the bcrypt hash of admin key K
`

func main() {
	if len(os.Args) > 1 {
		os.Exit(runCommand(os.Args[1:]))
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runCommand(args []string) int {
	switch args[0] {
	case "hash-key":
		if len(args) != 2 || args[1] == "" {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		hash, err := hashAdminKey(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash-key: %v\n", err)
			return 1
		}
		fmt.Println(hash)
		return 0
	case "-h", "--help", "help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

// hashAdminKey returns the value to put in QAJA_SECURITY_ADMIN_KEY_HASHES
func hashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

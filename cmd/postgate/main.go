package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/avessi/postgate"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "adduser":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: postgate adduser <email>")
			os.Exit(1)
		}
		if err := runAddUser(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("postgate %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runAddUser seeds the credential store with a new user. The password comes
// from POSTGATE_PASSWORD or, failing that, from stdin.
func runAddUser(email string) error {
	password := os.Getenv("POSTGATE_PASSWORD")
	if password == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	store, err := postgate.NewAuthStore(postgate.EnvOr("AUTH_DATABASE_PATH", "data/auth.db"))
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	defer store.Close()

	u, err := store.CreateUser(context.Background(), email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %s (%s)\n", u.Email, u.ID)
	return nil
}

func printUsage() {
	fmt.Println(`postgate - A blog admin console built with Go, Echo, and templ

Usage:
  postgate <command> [arguments]

Commands:
  adduser <email>   Create a user in the credential store
  version           Print the postgate version
  help              Show this help message

Examples:
  postgate adduser admin@example.com
  POSTGATE_PASSWORD=secret postgate adduser admin`)
}

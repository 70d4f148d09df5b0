package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"stella/internal/infra"
	"stella/internal/users"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: userctl <command> [args]

commands:
  init-db                          apply schema migrations
  create <username> <password> [email]
  list
  delete <id>`)
	os.Exit(2)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	if os.Args[1] == "init-db" {
		if err := infra.RunMigrations(databaseURL); err != nil {
			fatal(err)
		}
		fmt.Println("migrations applied")
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fatal(err)
	}
	defer pool.Close()
	store := users.NewStore(pool)

	switch os.Args[1] {
	case "create":
		if len(os.Args) < 4 {
			usage()
		}
		email := ""
		if len(os.Args) > 4 {
			email = os.Args[4]
		}
		user, err := store.Create(ctx, os.Args[2], os.Args[3], email)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("created user %d (%s)\n", user.ID, user.Username)
	case "list":
		list, err := store.List(ctx)
		if err != nil {
			fatal(err)
		}
		for _, u := range list {
			fmt.Printf("%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format("2006-01-02"))
		}
	case "delete":
		if len(os.Args) < 3 {
			usage()
		}
		id, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fatal(fmt.Errorf("invalid id %q", os.Args[2]))
		}
		user, err := store.Delete(ctx, id)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("deleted user %d (%s)\n", user.ID, user.Username)
	default:
		usage()
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

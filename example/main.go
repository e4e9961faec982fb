package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/TechXTT/torq"
)

func main() {
	ctx := context.Background()

	// 1) Connect to the database
	dsn := os.Getenv("DATABASE_URL")
	db, err := torq.NewDB(dsn, torq.Options{CaseConversion: true, LogQueries: true})
	if err != nil {
		panic(fmt.Errorf("connect: %w", err))
	}
	defer db.Close()

	s := db.Session()
	defer s.Release()

	// 2) Create the table
	if _, err := s.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id uuid PRIMARY KEY,
			first_name text NOT NULL,
			last_name text NOT NULL,
			email text UNIQUE NOT NULL,
			logins int NOT NULL DEFAULT 0,
			deleted boolean,
			created_at timestamp NOT NULL
		)`); err != nil {
		panic(fmt.Errorf("create table: %w", err))
	}

	// 3) Create a new user inside a transaction
	id := uuid.New()
	err = s.Transaction(ctx, func(tx *torq.Session) error {
		_, err := tx.Insert(ctx, torq.InsertStmt{
			Table: "users",
			Rows: []torq.Row{{
				"id":        id,
				"firstName": "Alice",
				"lastName":  "Smith",
				"email":     "alice@example.com",
				"createdAt": time.Now(),
			}},
		})
		return err
	})
	if torq.IsUniqueViolation(err) {
		fmt.Println("✅ User already exists")
	} else if err != nil {
		panic(fmt.Errorf("insert user: %w", err))
	} else {
		fmt.Printf("✅ Created user %s\n", id)
	}

	// 4) Count a login without reading the row first
	if err := s.Update(ctx, torq.UpdateStmt{
		Table:       "users",
		Data:        torq.Row{"logins": torq.Atomic(1)},
		Where:       "email = $1",
		Params:      []any{"alice@example.com"},
		AllowAtomic: true,
	}); err != nil {
		panic(fmt.Errorf("update user: %w", err))
	}

	// 5) Query it back
	var lastName *string
	user, err := torq.Select("users", "id", "firstName", "lastName", "logins", "createdAt").
		Where(
			torq.Group{torq.Eq("email", "alice@example.com"), torq.Eq("lastName", torq.Opt(lastName))},
			torq.NotDeleted(),
		).
		On(s).
		One(ctx)
	if err != nil {
		panic(fmt.Errorf("fetch user: %w", err))
	}
	fmt.Printf("✅ Fetched user: %v %v %v (logins %v, created %v)\n",
		user["id"], user["firstName"], user["lastName"], user["logins"], user["createdAt"],
	)
}

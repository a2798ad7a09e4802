//go:build ignore
// +build ignore

package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

const adminToolDoc = `chirp admin tool

Usage:
  admin_tool -i              Dump all users and tweets to STDOUT.
  admin_tool -d <user_id>    Delete a user and everything they own.
  admin_tool -h              Show this screen.

The database path is taken from CHIRP_DB_PATH (default chirp.db).`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(adminToolDoc)
		return
	}

	path := os.Getenv("CHIRP_DB_PATH")
	if path == "" {
		path = "chirp.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Can't open database: %s\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch os.Args[1] {
	case "-h":
		fmt.Println(adminToolDoc)
	case "-i":
		dump(db)
	case "-d":
		if len(os.Args) < 3 {
			fmt.Println(adminToolDoc)
			os.Exit(1)
		}
		id, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid user ID: %s\n", os.Args[2])
			os.Exit(1)
		}
		if err := deleteUserCascade(db, id); err != nil {
			fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted user %d and all owned rows\n", id)
	default:
		fmt.Println(adminToolDoc)
		os.Exit(1)
	}
}

func dump(db *sql.DB) {
	rows, err := db.Query(`
		SELECT users.id, users.username, users.email, tweets.id, tweets.body
		FROM users LEFT JOIN tweets ON tweets.user_id = users.id
		ORDER BY users.id, tweets.id`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var userID int
		var username, email string
		var tweetID sql.NullInt64
		var body sql.NullString
		rows.Scan(&userID, &username, &email, &tweetID, &body)
		fmt.Printf("%d,%s,%s,%d,%s\n", userID, username, email, tweetID.Int64, body.String)
	}
}

// deleteUserCascade removes the user plus likes and comments on their
// tweets, their own likes/comments/tweets, all in one transaction.
func deleteUserCascade(db *sql.DB, id int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		"DELETE FROM likes WHERE tweet_id IN (SELECT id FROM tweets WHERE user_id = ?)",
		"DELETE FROM comments WHERE tweet_id IN (SELECT id FROM tweets WHERE user_id = ?)",
		"DELETE FROM likes WHERE user_id = ?",
		"DELETE FROM comments WHERE user_id = ?",
		"DELETE FROM tweets WHERE user_id = ?",
		"DELETE FROM users WHERE id = ?",
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

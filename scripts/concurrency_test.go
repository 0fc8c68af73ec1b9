//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the rental API.
//
// Usage:
//
//	JWT_SECRET=<secret> go run ./scripts/concurrency_test.go <book_id> <user1_id> [user2_id ...]
//
// Or use the convenience environment variables:
//
//	JWT_SECRET=<secret> BOOK_ID=<uuid> USER_IDS=<uuid1>,<uuid2>,... go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Mints a bearer token per user with the server's JWT secret.
//  2. Fires N goroutines (one per user) all renting the same book simultaneously.
//  3. Prints how many rentals were created vs. rejected as out of stock.
//  4. Reads the book back and checks that exactly as many copies left available
//     stock as rentals were created.
//
// Prerequisites:
//   - Server must be running with the same JWT_SECRET.
//   - The book and N active users must exist.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookrental/internal/auth"
	"bookrental/internal/models"
)

const defaultServerAddr = "http://localhost:8080"

type rentalResult struct {
	UserID     string
	StatusCode int
	Message    string
	Err        error
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func main() {
	serverAddr := os.Getenv("SERVER_URL")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must match the server's secret")
	}

	bookID := os.Getenv("BOOK_ID")
	var userIDs []string
	if v := os.Getenv("USER_IDS"); v != "" {
		userIDs = strings.Split(v, ",")
	}

	// Support positional args: script <book_id> [user_ids...]
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		userIDs = args[1:]
	}

	if bookID == "" || len(userIDs) == 0 {
		log.Fatal("Usage: JWT_SECRET=... BOOK_ID=<uuid> USER_IDS=<u1,u2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: JWT_SECRET=... go run ./scripts/concurrency_test.go <book_id> <user1_id> [user2_id ...]")
	}

	before, err := fetchBook(serverAddr, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}

	fmt.Printf("=== Rental Concurrency Test ===\n")
	fmt.Printf("Server    : %s\n", serverAddr)
	fmt.Printf("Book      : %s (stock=%d, available=%d)\n", bookID, before.Stock, before.AvailableStock)
	fmt.Printf("Users     : %d\n\n", len(userIDs))

	results := make([]rentalResult, len(userIDs))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, uid := range userIDs {
		uid = strings.TrimSpace(uid)
		id, err := uuid.Parse(uid)
		if err != nil {
			log.Fatalf("invalid user id %q: %v", uid, err)
		}
		token, err := auth.Issue(secret, id, models.UserRoleUser, time.Hour)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}

		wg.Add(1)
		go func(idx int, userID, token string) {
			defer wg.Done()
			<-start
			results[idx] = attemptRental(serverAddr, bookID, userID, token)
		}(i, uid, token)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var created, outOfStock, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] user=%-38s err=%v\n", r.UserID, r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
			fmt.Printf("  [RENT] user=%-38s status=%d\n", r.UserID, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			outOfStock++
			fmt.Printf("  [FULL] user=%-38s status=%d %s\n", r.UserID, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] user=%-38s status=%d %s\n", r.UserID, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Created      : %d\n", created)
	fmt.Printf("Out of stock : %d\n", outOfStock)
	fmt.Printf("Failures     : %d\n", failures)
	fmt.Printf("Total        : %d\n\n", len(userIDs))

	after, err := fetchBook(serverAddr, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}

	fmt.Println("--- Invariant Check ---")
	fmt.Printf("Available stock: %d -> %d\n", before.AvailableStock, after.AvailableStock)
	ok := after.AvailableStock >= 0 &&
		after.AvailableStock <= after.Stock &&
		before.AvailableStock-after.AvailableStock == created
	if !ok {
		fmt.Println("[FAIL] stock counters do not match the rentals created")
		os.Exit(1)
	}
	fmt.Println("[OK] every created rental took exactly one copy")

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed, check server logs for details.\n", failures)
		os.Exit(1)
	}
}

func attemptRental(serverAddr, bookID, userID, token string) rentalResult {
	body := fmt.Sprintf(`{"bookId":%q}`, bookID)
	req, err := http.NewRequest(http.MethodPost, serverAddr+"/api/rentals", bytes.NewBufferString(body))
	if err != nil {
		return rentalResult{UserID: userID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return rentalResult{UserID: userID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return rentalResult{UserID: userID, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}
	return rentalResult{UserID: userID, StatusCode: resp.StatusCode, Message: env.Message}
}

func fetchBook(serverAddr, bookID string) (*models.Book, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverAddr + "/api/books/" + bookID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, env.Message)
	}
	var book models.Book
	if err := json.Unmarshal(env.Data, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

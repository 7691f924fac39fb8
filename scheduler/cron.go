package scheduler

import (
	"context"
	"log"
	"school-fees/db"
	"time"
)

// StartSessionSweeper starts the background job that purges expired sessions
// every minute.
func StartSessionSweeper() {
	log.Println("Starting session sweeper (runs every minute)...")

	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for range ticker.C {
			purgeExpiredSessions()
		}
	}()

	// Also sweep immediately on start
	go purgeExpiredSessions()
}

func purgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		log.Printf("Session sweep failed: %v", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Printf("Purged %d expired session(s)", n)
	}
}

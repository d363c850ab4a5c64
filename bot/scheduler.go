package bot

import (
	"errors"
	"log"

	"comic-bridge/database"
	"comic-bridge/publisher"

	"github.com/robfig/cron/v3"
)

var c *cron.Cron

// StartScheduler starts the hourly mapping audit job.
func StartScheduler(b *Bot, db *database.MappingDB, auditAtStartup bool) {
	log.Println("Initializing scheduler...")
	c = cron.New()
	_, err := c.AddFunc("@hourly", func() {
		log.Println("Running hourly mapping audit...")
		auditMappings(b, db)
	})
	if err != nil {
		log.Fatalf("Could not set up cron job: %v", err)
	}
	c.Start()
	log.Println("Mapping audit scheduled to run hourly.")

	// Perform an initial audit on startup based on config.
	if auditAtStartup {
		go func() {
			log.Println("Performing initial mapping audit on startup...")
			auditMappings(b, db)
		}()
	} else {
		log.Println("Skipping initial mapping audit on startup as per configuration.")
	}
}

// StopScheduler stops the cron jobs.
func StopScheduler() {
	if c != nil {
		c.Stop()
		log.Println("Scheduler stopped.")
	}
}

// auditMappings checks every stored mapping against the live platform and
// logs the stale ones. Stale rows are left in place: the next publish for
// that comic_id replaces them with a fresh thread.
func auditMappings(b *Bot, db *database.MappingDB) {
	if !b.IsReady() {
		log.Println("Session not ready, skipping mapping audit.")
		return
	}

	mappings, err := db.All()
	if err != nil {
		log.Printf("Failed to read mappings for audit: %v", err)
		return
	}

	stale := 0
	for _, m := range mappings {
		if _, err := b.FetchThread(m.ThreadID); err != nil {
			if errors.Is(err, publisher.ErrThreadNotFound) {
				stale++
				log.Printf("Stale mapping: comic %s -> thread %s (%s) no longer exists", m.ComicID, m.ThreadID, m.Title)
				continue
			}
			log.Printf("Audit fetch failed for thread %s: %v", m.ThreadID, err)
		}
	}
	log.Printf("Mapping audit finished: %d checked, %d stale.", len(mappings), stale)
}

// Command remind pushes a reminder for every incomplete todo due on the
// target date (tomorrow by default). Meant to run once a day from cron.
// Delivery failures are logged and skipped; there are no retries.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	flag "github.com/spf13/pflag"

	"whattodo/internal/config"
	"whattodo/internal/db"
	"whattodo/pkg/push"
	"whattodo/pkg/todo"
)

func main() {
	configPath := flag.StringP("config", "c", config.DefaultConfigFileName, "path to config file")
	date := flag.String("date", "", "target due date YYYY-MM-DD (default tomorrow)")
	dryRun := flag.Bool("dry-run", false, "list matching todos without sending")
	flag.Parse()

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Store != config.StorePostgres {
		log.Fatalf("reminders require the postgres store (subscriptions live there)")
	}

	target := *date
	if target == "" {
		target = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", target); err != nil {
		log.Fatalf("bad --date %q: %v", target, err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	todos := todo.NewPgStore(pool)
	subs := push.NewPgStore(pool)
	sender := push.NewSender(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)

	due, err := todos.DueOn(ctx, target)
	if err != nil {
		log.Fatalf("todos due on %s: %v", target, err)
	}
	if len(due) == 0 {
		log.Printf("no todos due on %s", target)
		return
	}
	log.Printf("%d todo(s) due on %s", len(due), target)

	// Subscriptions are per owner; cache lookups across their todos.
	cache := make(map[string]*push.Subscription)
	sent, failed := 0, 0
	for _, t := range due {
		if *dryRun {
			log.Printf("would notify %s: %s", t.OwnerID, t.Content)
			continue
		}
		sub, ok := cache[t.OwnerID]
		if !ok {
			sub, err = subs.Get(ctx, t.OwnerID)
			if errors.Is(err, push.ErrNoSubscription) {
				log.Printf("owner %s has no subscription", t.OwnerID)
				cache[t.OwnerID] = nil
				continue
			}
			if err != nil {
				log.Printf("subscription for %s: %v", t.OwnerID, err)
				failed++
				continue
			}
			cache[t.OwnerID] = sub
		}
		if sub == nil {
			continue
		}

		err := sender.Send(ctx, sub, push.Notification{
			Title: "Due tomorrow",
			Body:  t.Content,
			URL:   "/whattodo/",
		})
		if errors.Is(err, push.ErrNoSubscription) {
			// The push service says the endpoint is gone; drop it.
			log.Printf("subscription for %s expired, removing", t.OwnerID)
			if err := subs.Delete(ctx, t.OwnerID); err != nil {
				log.Printf("remove subscription for %s: %v", t.OwnerID, err)
			}
			cache[t.OwnerID] = nil
			continue
		}
		if err != nil {
			log.Printf("notify %s: %v", t.OwnerID, err)
			failed++
			continue
		}
		sent++
	}
	log.Printf("done: %d sent, %d failed", sent, failed)
}

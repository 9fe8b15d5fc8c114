package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/ManuelReschke/SplitFund/internal/pkg/database"
	"github.com/ManuelReschke/SplitFund/internal/pkg/env"
	"github.com/ManuelReschke/SplitFund/internal/pkg/settlement"
)

// resettle retries distribution for succeeded payments that could not be
// settled when they arrived, typically because no recipient was eligible at
// the time.
func main() {
	limit := flag.Int("limit", 100, "maximum number of payments to retry")
	dryRun := flag.Bool("dry-run", false, "list candidates without settling")
	flag.Parse()

	env.SetupEnvFile()
	database.SetupDatabase()

	ctx := context.Background()
	svc := settlement.NewServiceFromDB(database.GetDB())

	payments, err := svc.ListUnsettled(ctx, *limit)
	if err != nil {
		log.Fatalf("Failed to list unsettled payments: %v", err)
	}
	if len(payments) == 0 {
		log.Println("No unsettled succeeded payments found")
		return
	}
	log.Printf("Found %d unsettled succeeded payment(s)", len(payments))

	if *dryRun {
		for _, p := range payments {
			log.Printf("Would settle payment %d (%s, %d %s)", p.ID, p.ProviderPaymentID, p.Amount, p.Currency)
		}
		return
	}

	settled, skipped := 0, 0
	for _, p := range payments {
		splits, err := svc.Settle(ctx, p.ID)
		if err != nil {
			if errors.Is(err, settlement.ErrNoEligibleRecipients) {
				log.Printf("Payment %d still has no eligible recipients, skipping", p.ID)
				skipped++
				continue
			}
			log.Fatalf("Failed to settle payment %d: %v", p.ID, err)
		}
		log.Printf("Settled payment %d into %d split(s)", p.ID, len(splits))
		settled++
	}

	log.Printf("Done: %d settled, %d skipped", settled, skipped)
}

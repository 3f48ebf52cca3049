// cmd/sweeper runs the housekeeping batch once: it expires inquiries that
// were never confirmed and purges guest documents past retention.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/config"
	"github.com/Shivanand-hulikatti/stay-booking/internal/database"
	"github.com/Shivanand-hulikatti/stay-booking/internal/events"
	"github.com/Shivanand-hulikatti/stay-booking/internal/notify"
	"github.com/Shivanand-hulikatti/stay-booking/internal/repository"
	"github.com/Shivanand-hulikatti/stay-booking/internal/service/batch"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
)

const projectName = "stay-booking-sweeper"

func main() {
	timeout := flag.Duration("timeout", 0, "batch timeout (default SWEEP_TIMEOUT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *timeout <= 0 {
		*timeout = cfg.SweepTimeout
	}

	if cfg.EnableTracing {
		if err := xray.Configure(xray.Config{
			DaemonAddr:     "127.0.0.1:2000",
			ServiceVersion: "1.0.0",
		}); err != nil {
			log.Printf("configure X-Ray: %v", err)
			if err := xray.Configure(xray.Config{}); err != nil {
				log.Fatalf("configure default X-Ray: %v", err)
			}
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.OpenBatchDB(ctx, cfg.DB, cfg.EnableTracing)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var changes batch.ChangePublisher
	if cfg.RedisURL != "" {
		rdb, err := events.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			// Open calendars catch up on their next snapshot.
			log.Printf("redis unavailable, expiries will not be broadcast: %v", err)
		} else {
			defer rdb.Close()
			changes = events.NewPublisher(rdb)
		}
	}

	svc := batch.NewSweepService(repository.NewSweepRepository(db), changes, cfg.DocumentRetentionDays)
	if !cfg.IsLocal() && cfg.StateMachineARN != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		svc.SetNotifier(notify.NewSFNDispatcher(sfn.NewFromConfig(awsCfg), cfg.StateMachineARN))
	}

	if cfg.EnableTracing {
		var seg *xray.Segment
		ctx, seg = xray.BeginSegment(ctx, projectName)
		defer seg.Close(nil)
		if err := seg.AddMetadata("timeout", timeout.String()); err != nil {
			log.Printf("add timeout metadata: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- runWithTimeout(ctx, *timeout, func(ctx context.Context) error {
			_, err := svc.Run(ctx)
			return err
		})
	}()

	select {
	case sig := <-sigChan:
		log.Printf("received %v, stopping sweep", sig)
		cancel()
		if err := <-errChan; err != nil {
			log.Printf("sweep interrupted: %v", err)
		}
		os.Exit(1)
	case err := <-errChan:
		if err != nil {
			log.Printf("sweep failed: %v", err)
			os.Exit(1)
		}
		log.Println("sweep completed")
	}
}

// runWithTimeout runs fn with a deadline and returns as soon as either fn
// finishes or the deadline passes.
func runWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- fn(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("sweep timed out after %v", timeout)
	}
}

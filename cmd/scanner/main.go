// Command scanner is the student-side client. It reads scan commands from
// stdin, validates tokens locally, records attendance against the remote
// validation function when online and queues scans on disk when offline.
//
// Commands, one per line:
//
//	scan <matric-number> <token> [device-guid]
//	online | offline
//	sync
//	pending
//	quit
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Mid-D-Man/AirCode-sub002/internal/codec"
	"github.com/Mid-D-Man/AirCode-sub002/internal/config"
	"github.com/Mid-D-Man/AirCode-sub002/internal/edge"
	"github.com/Mid-D-Man/AirCode-sub002/internal/logger"
	"github.com/Mid-D-Man/AirCode-sub002/internal/queue"
	"github.com/Mid-D-Man/AirCode-sub002/internal/reconcile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	encryptionKey, iv, signingSecret, err := cfg.QR.Keys()
	if err != nil {
		logger.Fatal("failed to decode qr key material", "error", err)
	}

	tokenCodec := codec.New(codec.Config{
		URLPrefix:     cfg.QR.URLPrefix,
		Marker:        cfg.QR.Marker,
		EncryptionKey: encryptionKey,
		IV:            iv,
		SigningSecret: signingSecret,
	}, logger)

	builder := edge.NewBuilder(tokenCodec, signingSecret)
	dispatcher := edge.NewDispatcher(cfg.Sync.EndpointURL, cfg.Sync.Timeout, logger)

	store, err := queue.NewFileStore(cfg.Sync.QueuePath)
	if err != nil {
		logger.Fatal("failed to open pending queue", "error", err)
	}

	monitor := reconcile.NewSignal(true)
	reconciler := reconcile.New(tokenCodec, builder, dispatcher, store, monitor, logger, reconcile.Config{
		MaxRetries: cfg.Sync.MaxRetries,
		Debounce:   cfg.Sync.Debounce,
	})

	go reconciler.Run(ctx)

	repl(ctx, reconciler, monitor)
}

func repl(ctx context.Context, reconciler *reconcile.Reconciler, monitor *reconcile.Signal) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("ready")

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "scan":
			if len(fields) < 3 {
				fmt.Println("usage: scan <matric-number> <token> [device-guid]")
				continue
			}
			deviceGUID := ""
			if len(fields) > 3 {
				deviceGUID = fields[3]
			}
			result := reconciler.ProcessScan(ctx, fields[2], fields[1], deviceGUID)
			if result.Success {
				fmt.Printf("ok: %s\n", result.Message)
			} else {
				fmt.Printf("rejected [%s]: %s\n", result.ErrorCode, result.Message)
			}

		case "online":
			monitor.Set(true)
			fmt.Println("connectivity: online")

		case "offline":
			monitor.Set(false)
			fmt.Println("connectivity: offline")

		case "sync":
			batch, err := reconciler.ManualSync(ctx)
			if err != nil {
				fmt.Printf("sync failed: %v\n", err)
				continue
			}
			fmt.Printf("sync: %d total, %d succeeded, %d failed, %d expired\n",
				batch.Total, batch.Succeeded, batch.Failed, batch.Expired)

		case "pending":
			records, err := reconciler.Pending(ctx)
			if err != nil {
				fmt.Printf("failed to list pending: %v\n", err)
				continue
			}
			for _, r := range records {
				fmt.Printf("%s %s session=%s status=%s retries=%d\n",
					r.ID, r.MatricNumber, r.SessionID, r.SyncStatus, r.RetryCount)
			}
			fmt.Printf("%d pending\n", len(records))

		case "quit", "exit":
			return

		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

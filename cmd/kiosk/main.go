// Kiosk runner for the end-user flow: list the shows on sale, wait for
// a card scan, look the user up, sell one ticket, print a receipt.
// Admin work (user and show management) happens through the same
// gateway from the management shells; this binary only demonstrates
// the anonymous flow end to end.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"showpass/internal/api"
	"showpass/internal/config"
	"showpass/internal/gateway"
	"showpass/internal/nfc"
	"showpass/internal/notify"
	"showpass/internal/receipt"
	"showpass/internal/session"
	"showpass/internal/store"
	"showpass/pkg/utils"
)

// stdinReader stands in for the NFC hardware: each line on stdin is a
// scanned card id. Wedge-mode USB readers behave exactly like this.
type stdinReader struct {
	lines chan string
}

func newStdinReader() *stdinReader {
	r := &stdinReader{lines: make(chan string)}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			r.lines <- strings.TrimSpace(scanner.Text())
		}
		close(r.lines)
	}()
	return r
}

func (r *stdinReader) ReadCard(ctx context.Context) (nfc.CardID, error) {
	select {
	case line, ok := <-r.lines:
		if !ok {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return nfc.CardID(line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case "file":
		if cfg.Store.EncryptionKey != "" {
			return store.NewEncryptedFileStore(cfg.Store.Path, cfg.Store.EncryptionKey)
		}
		return store.NewFileStore(cfg.Store.Path), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func main() {
	tickets := flag.Int("tickets", 1, "tickets to sell per scan")
	receiptDir := flag.String("receipts", ".", "directory for receipt PDFs")
	flag.Parse()

	cfg := config.Load()

	creds, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("credential store init failed: %v", err)
	}

	sessions := session.NewManager(creds)
	var opts []api.Option
	opts = append(opts, api.WithBypassHeader(cfg.API.BypassHeader, cfg.API.BypassValue))
	if cfg.API.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.API.Timeout))
	}
	client := api.NewClient(cfg.API.BaseURL, sessions, opts...)
	sessions.SetLoginClient(client)

	gw := gateway.New(sessions, client, notify.LogNotifier{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw.Start(ctx)

	if cfg.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Printf("[Metrics] Serving /metrics on %s", addr)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("[Metrics] Server stopped: %v", err)
			}
		}()
	}

	if res := gw.ListActiveShows(ctx); !res.Success {
		log.Printf("[Kiosk] %s", res.Message)
	}
	shows := gw.Shows()
	if len(shows) == 0 {
		log.Println("[Kiosk] No shows on sale right now")
	}
	for i, sh := range shows {
		log.Printf("[Kiosk] %d. %s - %s", i+1, sh.Name, utils.FormatRupees(sh.Price))
	}

	log.Println("[Kiosk] Waiting for card scans (one card id per line)...")
	scanner := nfc.NewScanner(newStdinReader())
	for card := range scanner.Scan(ctx) {
		sellTo(ctx, gw, string(card), *tickets, *receiptDir)
	}
}

// sellTo runs one scan-to-receipt cycle against the first show on sale.
func sellTo(ctx context.Context, gw *gateway.Gateway, cardID string, tickets int, receiptDir string) {
	lookupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	user := gw.LookupUserByCard(lookupCtx, cardID)
	if user == nil {
		log.Printf("[Kiosk] Card %s not recognized", cardID)
		return
	}
	if !user.IsActive {
		log.Printf("[Kiosk] Card %s is deactivated", cardID)
		return
	}
	shows := gw.Shows()
	if len(shows) == 0 {
		log.Println("[Kiosk] Nothing on sale")
		return
	}
	show := shows[0]

	log.Printf("[Kiosk] %s (balance %s) buying %d x %s",
		user.Name, utils.FormatRupees(user.WalletBalance), tickets, show.Name)

	res := gw.PurchaseTickets(lookupCtx, user.ID, show.ID, tickets)
	if !res.Success {
		log.Printf("[Kiosk] Purchase refused: %s", res.Message)
		return
	}

	rcpt := receipt.New(*user, show, tickets)
	pdf, err := receipt.Render(rcpt)
	if err != nil {
		log.Printf("[Kiosk] Receipt render failed: %v", err)
		return
	}
	path := fmt.Sprintf("%s/receipt_%s.pdf", receiptDir, rcpt.Number)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		log.Printf("[Kiosk] Receipt write failed: %v", err)
		return
	}
	log.Printf("[Kiosk] Receipt saved to %s", path)
}

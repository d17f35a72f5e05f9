// Package nfc turns a tag-reading hardware interface into a
// cancellable stream of card ids. The hardware session lifecycle
// itself belongs to the Reader implementation.
package nfc

import (
	"context"
	"errors"
	"log"
)

// CardID is the identifier read off an NFC tag.
type CardID string

// Reader is the hardware collaborator. ReadCard blocks until a tag is
// discovered or ctx is done.
type Reader interface {
	ReadCard(ctx context.Context) (CardID, error)
}

// Scanner multiplexes a Reader into per-consumer event streams.
type Scanner struct {
	reader Reader
}

func NewScanner(r Reader) *Scanner {
	return &Scanner{reader: r}
}

// Scan returns a stream of scanned card ids. The stream runs until ctx
// is cancelled, after which the channel is closed and the backing
// goroutine exits; cancelling is how a screen unsubscribes, so nothing
// leaks. Read errors are logged and skipped, duplicate consecutive
// scans are collapsed.
func (s *Scanner) Scan(ctx context.Context) <-chan CardID {
	out := make(chan CardID)
	go func() {
		defer close(out)
		var last CardID
		for {
			card, err := s.reader.ReadCard(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				log.Printf("[NFC] Read error: %v", err)
				continue
			}
			if card == "" || card == last {
				continue
			}
			last = card
			select {
			case out <- card:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

package db

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/oklog/ulid/v2"
)

// ContentHash returns the de-duplication key for a tweet text.
func ContentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.TrimSpace(text)))
}

// Tweet is an incoming tweet before it is stored.
type Tweet struct {
	Text      string
	Author    string
	CreatedAt time.Time
}

// Ingester appends tweets to the store, skipping texts already present.
// It is safe for concurrent use.
type Ingester struct {
	db      *sql.DB
	source  string
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewIngester returns an Ingester that tags rows with source.
func NewIngester(d *sql.DB, source string) *Ingester {
	return &Ingester{
		db:      d,
		source:  source,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec
		now:     time.Now,
	}
}

// Add stores t unless its text is empty or a duplicate. It returns the new
// tweet id, or "" when nothing was inserted.
func (in *Ingester) Add(t Tweet) (string, error) {
	if strings.TrimSpace(t.Text) == "" {
		return "", nil
	}
	hash := ContentHash(t.Text)

	in.mu.Lock()
	defer in.mu.Unlock()

	exists, err := TweetExistsByHash(in.db, hash)
	if err != nil {
		return "", err
	}
	if exists {
		return "", nil
	}

	now := in.now()
	id := ulid.MustNew(ulid.Timestamp(now), in.entropy).String()
	err = InsertTweet(in.db, TweetRow{
		ID:         id,
		Text:       t.Text,
		Hash:       hash,
		Author:     t.Author,
		Source:     in.source,
		CreatedAt:  t.CreatedAt,
		ReceivedAt: now,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

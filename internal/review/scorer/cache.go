package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	appmodels "leaseguard/internal/application/models"
	"leaseguard/internal/review"
)

const (
	cacheKeyPrefix = "score:"
	cacheTTL       = 15 * time.Minute
)

// CachedScorer wraps a scorer with a Redis result cache keyed by a
// fingerprint of the applicant and document set. Cache failures are treated
// as misses: the cache can never make scoring fail.
type CachedScorer struct {
	inner  Scorer
	client *redis.Client
	logger *slog.Logger
}

// NewCachedScorer decorates inner with a cache. A nil client returns inner
// unchanged so wiring stays unconditional in main.
func NewCachedScorer(inner Scorer, client *redis.Client, logger *slog.Logger) Scorer {
	if client == nil {
		return inner
	}
	return &CachedScorer{inner: inner, client: client, logger: logger}
}

// fingerprint derives a stable key from the scoring inputs. Document order
// must not matter, so entries are sorted before hashing.
func fingerprint(applicant Applicant, documents []appmodels.Document) string {
	entries := make([]string, 0, len(documents))
	for _, doc := range documents {
		entries = append(entries, fmt.Sprintf("%s|%s|%d", doc.Filename, doc.MimeType, doc.SizeBytes))
	}
	sort.Strings(entries)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s\n", applicant.Name, applicant.Email, applicant.Phone)
	for _, e := range entries {
		h.Write([]byte(e))
		h.Write([]byte{'\n'})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedScorer) Score(ctx context.Context, applicant Applicant, documents []appmodels.Document) (review.ScoreResult, error) {
	key := fingerprint(applicant, documents)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var result review.ScoreResult
		if jsonErr := json.Unmarshal([]byte(cached), &result); jsonErr == nil {
			return result, nil
		}
		// Corrupt entry: fall through and rescore.
	} else if err != redis.Nil {
		c.logger.Warn("score cache read failed, treating as miss", "error", err)
	}

	result, err := c.inner.Score(ctx, applicant, documents)
	if err != nil {
		return review.ScoreResult{}, err
	}

	if payload, jsonErr := json.Marshal(result); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, payload, cacheTTL).Err(); setErr != nil {
			c.logger.Warn("score cache write failed", "error", setErr)
		}
	}
	return result, nil
}

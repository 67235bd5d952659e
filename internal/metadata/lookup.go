package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/cache"
	"github.com/mrlokans/shelfshare/internal/isbn"
	"github.com/mrlokans/shelfshare/internal/metrics"
)

// Service resolves ISBNs and search queries against an ordered list of
// providers, caching ISBN results.
type Service struct {
	providers []Provider
	cache     cache.Cache
	ttl       time.Duration
	log       *logrus.Entry
}

// NewService queries providers in order; the first one with a result wins.
func NewService(c cache.Cache, ttl time.Duration, providers ...Provider) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		providers: providers,
		cache:     c,
		ttl:       ttl,
		log:       logrus.WithField("component", "lookup"),
	}
}

func cacheKey(code string) string {
	return "isbn:" + code
}

// LookupISBN normalizes and validates raw, then returns cached or fresh metadata.
// It returns ErrInvalidISBN for bad input and ErrNotFound when no provider knows the book.
func (s *Service) LookupISBN(ctx context.Context, raw string) (*BookMetadata, error) {
	code := isbn.Canonical(raw)
	if code == "" {
		return nil, ErrInvalidISBN
	}

	if cached := s.fromCache(ctx, code); cached != nil {
		metrics.Lookup("cache", "hit")
		return cached, nil
	}

	var lastErr error
	for _, p := range s.providers {
		result, err := p.SearchByISBN(ctx, code)
		switch {
		case err == nil:
			metrics.Lookup(p.Name(), "hit")
			s.store(ctx, code, result)
			return result, nil
		case errors.Is(err, ErrNotFound):
			metrics.Lookup(p.Name(), "miss")
		default:
			metrics.Lookup(p.Name(), "error")
			s.log.WithError(err).WithFields(logrus.Fields{
				"provider": p.Name(),
				"isbn":     code,
			}).Warn("metadata provider failed")
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("lookup %s: %w", code, lastErr)
	}
	return nil, ErrNotFound
}

// Search runs a free-text query, falling back to later providers on miss or error.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]BookMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	var lastErr error
	for _, p := range s.providers {
		results, err := p.Search(ctx, query, limit)
		if err == nil && len(results) > 0 {
			metrics.Lookup(p.Name(), "hit")
			return results, nil
		}
		if err == nil || errors.Is(err, ErrNotFound) {
			metrics.Lookup(p.Name(), "miss")
			continue
		}
		metrics.Lookup(p.Name(), "error")
		s.log.WithError(err).WithField("provider", p.Name()).Warn("metadata search failed")
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("search %q: %w", query, lastErr)
	}
	return nil, ErrNotFound
}

func (s *Service) fromCache(ctx context.Context, code string) *BookMetadata {
	if s.cache == nil {
		return nil
	}
	data, ok, err := s.cache.Get(ctx, cacheKey(code))
	if err != nil {
		s.log.WithError(err).Debug("lookup cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	var result BookMetadata
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *Service) store(ctx context.Context, code string, result *BookMetadata) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(code), data, s.ttl); err != nil {
		s.log.WithError(err).Debug("lookup cache write failed")
	}
}

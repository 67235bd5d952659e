package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/logging"
	"github.com/mrlokans/shelfshare/internal/metadata"
)

// EnrichBookTask fills a book's missing metadata from external sources.
type EnrichBookTask struct {
	BookID uint `json:"book_id"`
	UserID uint `json:"user_id"`
}

// Config returns the queue configuration for book enrichment tasks.
func (t EnrichBookTask) Config() backlite.QueueConfig {
	return queueDefaults.retryable("enrich_book")
}

// BookEnricher performs the metadata lookup and the book update.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
}

// EnrichmentAuditor records the outcome of an enrichment.
type EnrichmentAuditor interface {
	LogMetadataEnrich(userID uint, bookID uint, provider string, fields []string, err error)
}

// EnrichBookProcessor creates a processor function for EnrichBookTask.
// A book that no provider knows is not retried.
func EnrichBookProcessor(enricher BookEnricher, auditor EnrichmentAuditor) backlite.QueueProcessor[EnrichBookTask] {
	log := logging.Component("tasks")
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		result, err := enricher.EnrichBook(ctx, task.BookID)
		if errors.Is(err, metadata.ErrNotFound) {
			log.WithField("book_id", task.BookID).Info("no metadata found for book")
			if auditor != nil {
				auditor.LogMetadataEnrich(task.UserID, task.BookID, "none", nil, err)
			}
			return nil
		}
		if err != nil {
			if auditor != nil {
				auditor.LogMetadataEnrich(task.UserID, task.BookID, "unknown", nil, err)
			}
			return fmt.Errorf("enrich book %d: %w", task.BookID, err)
		}

		if auditor != nil {
			auditor.LogMetadataEnrich(task.UserID, task.BookID, result.Source, result.FieldsUpdated, nil)
		}
		log.WithFields(logrus.Fields{
			"book_id": task.BookID,
			"title":   result.Book.Title,
			"fields":  result.FieldsUpdated,
			"method":  result.SearchMethod,
		}).Info("book enriched")
		return nil
	}
}

// NewEnrichBookQueue creates a backlite queue for book enrichment tasks.
func NewEnrichBookQueue(enricher BookEnricher, auditor EnrichmentAuditor) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher, auditor))
}

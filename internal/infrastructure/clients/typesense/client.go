package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/geyser-noncompliance/pkg/config"
	"github.com/zatekoja/geyser-noncompliance/pkg/retry"
)

const (
	AssessmentsCollection = "noncompliance_assessments"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// AssessmentSchema is the collection layout for submitted assessments
func AssessmentSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: AssessmentsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "job_id", Type: "string", Facet: pointer.True()},
			{Name: "claim_number", Type: "string"},
			{Name: "client_name", Type: "string"},
			{Name: "property_address", Type: "string"},
			{Name: "insurance_name", Type: "string", Facet: pointer.True()},
			{Name: "overall_compliance", Type: "string", Facet: pointer.True()},
			{Name: "risk_level", Type: "string", Facet: pointer.True()},
			{Name: "urgent_action", Type: "bool", Facet: pointer.True()},
			{Name: "selected_count", Type: "int32"},
			{Name: "submitted_at", Type: "int64"},
			{Name: "tags", Type: "string[]", Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("submitted_at"),
	}
}

// InitSchema ensures the assessments collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := c.client.Collection(AssessmentsCollection).Retrieve(ctx); err == nil {
		log.Debug().Str("collection", AssessmentsCollection).Msg("Typesense collection already exists")
		return nil
	}

	if _, err := c.client.Collections().Create(ctx, AssessmentSchema()); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", AssessmentsCollection, err)
	}

	log.Info().Str("collection", AssessmentsCollection).Msg("Created Typesense collection")
	return nil
}

// DropSchema deletes the assessments collection
func (c *Client) DropSchema(ctx context.Context) error {
	if _, err := c.client.Collection(AssessmentsCollection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", AssessmentsCollection, err)
	}
	return nil
}

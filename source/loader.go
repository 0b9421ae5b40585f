// Package source loads a forest from a DynamoDB table.
//
// Each item holds one record: a string id, an optional parent_id and a
// label. Items carrying an expired ttl are soft-deleted and skipped, both
// by a server-side filter and on the client.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/forest/store"
)

// Loader reads the full record sequence of a table.
type Loader struct {
	client dynamodb.ScanAPIClient
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new Loader.
func New(client dynamodb.ScanAPIClient, config Config, logger *slog.Logger) *Loader {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		client: client,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Load scans the table and returns the live records in scan order.
// Items that cannot be decoded are logged and skipped.
func (l *Loader) Load(ctx context.Context) ([]store.Record[string], error) {
	now := l.now()

	input := &dynamodb.ScanInput{
		TableName:        aws.String(l.config.TableName),
		FilterExpression: aws.String(ttlFilterExpr()),
		ExpressionAttributeNames: map[string]string{
			"#ttl": AttrTTL,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{
				Value: strconv.FormatInt(now.Unix(), 10),
			},
		},
	}
	if l.config.IndexName != "" {
		input.IndexName = aws.String(l.config.IndexName)
	}
	if l.config.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}
	if l.config.PageSize > 0 {
		input.Limit = aws.Int32(l.config.PageSize)
	}

	var (
		records []store.Record[string]
		pages   int
		skipped int
	)

	// Paginate through all results
	paginator := dynamodb.NewScanPaginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", l.config.TableName, err)
		}
		pages++

		for _, raw := range page.Items {
			if IsExpired(raw, now) {
				skipped++
				continue
			}
			rec, err := DecodeRecord(raw)
			if err != nil {
				l.logger.Warn("skipping undecodable item",
					"table", l.config.TableName,
					"error", err,
				)
				skipped++
				continue
			}
			records = append(records, rec)
		}
	}

	l.logger.Debug("records loaded",
		"table", l.config.TableName,
		"pages", pages,
		"records", len(records),
		"skipped", skipped,
	)
	return records, nil
}

// Sync loads the table and replaces the contents of s with it.
// It returns the number of records indexed.
func (l *Loader) Sync(ctx context.Context, s *store.Store[string]) (int, error) {
	records, err := l.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.Replace(records); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			l.logger.Error("table contains duplicate ids",
				"table", l.config.TableName,
				"error", err,
			)
		}
		return 0, err
	}
	return len(records), nil
}

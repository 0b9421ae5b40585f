// Package stream keeps a Store in step with a DynamoDB table by applying
// its stream records as incremental mutations.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/forest/source"
	"github.com/jacentio/forest/store"
)

// Handler applies DynamoDB stream events to a Store.
//
// The Store is not synchronized; a Handler must be its only writer.
type Handler struct {
	store  *store.Store[string]
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler creates a new stream handler.
func NewHandler(s *store.Store[string], logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// HandleStream applies every record of event in order.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleStream(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.processRecord(record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// processRecord applies a single DynamoDB stream record.
func (h *Handler) processRecord(record events.DynamoDBEventRecord) error {
	switch record.EventName {
	case "INSERT":
		return h.upsert(record.EventID, record.Change.NewImage)

	case "MODIFY":
		oldTTL := getNumberAttr(record.Change.OldImage, source.AttrTTL)
		newTTL := getNumberAttr(record.Change.NewImage, source.AttrTTL)

		// A newly set TTL is a soft delete of the whole subtree
		if oldTTL == 0 && newTTL != 0 {
			return h.remove(recordID(record))
		}
		return h.upsert(record.EventID, record.Change.NewImage)

	case "REMOVE":
		return h.remove(recordID(record))
	}
	return nil
}

// upsert inserts or updates the record held by image.
func (h *Handler) upsert(eventID string, image map[string]events.DynamoDBAttributeValue) error {
	raw := ConvertImage(image)
	rec, err := source.DecodeRecord(raw)
	if err != nil {
		// Retrying cannot fix a malformed image
		h.logger.Warn("skipping undecodable stream image",
			"eventID", eventID,
			"error", err,
		)
		return nil
	}
	if source.IsExpired(raw, h.now()) {
		return h.remove(rec.ID)
	}

	if h.store.Contains(rec.ID) {
		if err := h.store.Update(rec); err != nil {
			return fmt.Errorf("update %s: %w", rec.ID, err)
		}
		return nil
	}
	if err := h.store.Insert(rec); err != nil {
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}
	return nil
}

// remove cascades a delete. Unknown ids are ignored so replays are idempotent.
func (h *Handler) remove(id string) error {
	if id == "" {
		return nil
	}
	removed, err := h.store.Remove(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Info("cascade delete applied",
		"id", id,
		"removed", len(removed),
	)
	return nil
}

// recordID extracts the record identifier from keys, falling back to images.
func recordID(record events.DynamoDBEventRecord) string {
	if id := getStringAttr(record.Change.Keys, source.AttrID); id != "" {
		return id
	}
	if id := getStringAttr(record.Change.NewImage, source.AttrID); id != "" {
		return id
	}
	return getStringAttr(record.Change.OldImage, source.AttrID)
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values.
// Attributes of unsupported types are dropped.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := convertValue(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for _, item := range v.List() {
			if av := convertValue(item); av != nil {
				list = append(list, av)
			}
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	}
	return nil
}

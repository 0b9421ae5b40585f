package source

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/forest/store"
)

// Attribute names of a record item.
const (
	AttrID     = "id"
	AttrParent = "parent_id"
	AttrLabel  = "label"
	AttrTTL    = "ttl"
)

// ErrMissingID is returned when an item has no usable id attribute.
var ErrMissingID = errors.New("forest: item has no id")

// item is the stored shape of a record.
type item struct {
	ID       string `dynamodbav:"id"`
	ParentID string `dynamodbav:"parent_id,omitempty"`
	Label    string `dynamodbav:"label"`
	TTL      int64  `dynamodbav:"ttl,omitempty"`
}

// DecodeRecord converts a DynamoDB item to a record.
// An absent or empty parent_id makes the record a root.
func DecodeRecord(raw map[string]types.AttributeValue) (store.Record[string], error) {
	var it item
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return store.Record[string]{}, fmt.Errorf("decode item: %w", err)
	}
	if it.ID == "" {
		return store.Record[string]{}, ErrMissingID
	}
	if it.ParentID == "" {
		return store.Root(it.ID, it.Label), nil
	}
	return store.Child(it.ID, it.ParentID, it.Label), nil
}

// EncodeRecord converts a record to a DynamoDB item.
func EncodeRecord(rec store.Record[string]) (map[string]types.AttributeValue, error) {
	it := item{ID: rec.ID, Label: rec.Label}
	if parent, ok := rec.ParentID(); ok {
		it.ParentID = parent
	}
	return attributevalue.MarshalMap(it)
}

// IsExpired checks if an item has a TTL at or before now (is soft-deleted).
func IsExpired(raw map[string]types.AttributeValue, now time.Time) bool {
	ttlAttr, exists := raw[AttrTTL]
	if !exists {
		return false // No TTL = active
	}
	ttlNum, ok := ttlAttr.(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	ttl, err := strconv.ParseInt(ttlNum.Value, 10, 64)
	if err != nil {
		return false
	}
	return ttl <= now.Unix()
}

// ttlFilterExpr excludes soft-deleted items server side.
func ttlFilterExpr() string {
	return "attribute_not_exists(#ttl) OR #ttl > :now"
}

package source

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/forest/store"
)

// fakeScanner serves pre-built pages, chaining them through LastEvaluatedKey.
type fakeScanner struct {
	pages  [][]map[string]types.AttributeValue
	inputs []*dynamodb.ScanInput
	err    error
}

func (f *fakeScanner) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}

	page := 0
	if v, ok := params.ExclusiveStartKey["page"].(*types.AttributeValueMemberN); ok {
		page, _ = strconv.Atoi(v.Value)
	}

	out := &dynamodb.ScanOutput{}
	if page < len(f.pages) {
		out.Items = f.pages[page]
	}
	if page+1 < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"page": &types.AttributeValueMemberN{Value: strconv.Itoa(page + 1)},
		}
	}
	return out, nil
}

func rawItem(id, parent, label string) map[string]types.AttributeValue {
	raw := map[string]types.AttributeValue{
		"id":    &types.AttributeValueMemberS{Value: id},
		"label": &types.AttributeValueMemberS{Value: label},
	}
	if parent != "" {
		raw["parent_id"] = &types.AttributeValueMemberS{Value: parent}
	}
	return raw
}

func withTTL(raw map[string]types.AttributeValue, ttl int64) map[string]types.AttributeValue {
	raw["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)}
	return raw
}

var fixedNow = time.Unix(1700000000, 0)

func newTestLoader(f *fakeScanner, cfg Config) *Loader {
	l := New(f, cfg, nil)
	l.now = func() time.Time { return fixedNow }
	return l
}

func recordIDs(recs []store.Record[string]) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

// --- Config Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TableName != "forest_records" {
		t.Errorf("expected TableName 'forest_records', got %q", cfg.TableName)
	}
	if cfg.PageSize != 0 {
		t.Errorf("expected PageSize 0, got %d", cfg.PageSize)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name         string
		input        Config
		expectedName string
		expectedSize int32
	}{
		{"empty", Config{}, "forest_records", 0},
		{"negative page", Config{TableName: "t", PageSize: -5}, "t", 0},
		{"page too large", Config{TableName: "t", PageSize: 5000}, "t", 1000},
		{"valid", Config{TableName: "t", PageSize: 100}, "t", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.input
			cfg.validate()
			if cfg.TableName != tt.expectedName {
				t.Errorf("expected TableName %q, got %q", tt.expectedName, cfg.TableName)
			}
			if cfg.PageSize != tt.expectedSize {
				t.Errorf("expected PageSize %d, got %d", tt.expectedSize, cfg.PageSize)
			}
		})
	}
}

// --- DecodeRecord Tests ---

func TestDecodeRecord_Root(t *testing.T) {
	rec, err := DecodeRecord(rawItem("a", "", "A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "a" || rec.Label != "A" || rec.HasParent {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestDecodeRecord_Child(t *testing.T) {
	rec, err := DecodeRecord(rawItem("b", "a", "B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parent, ok := rec.ParentID(); !ok || parent != "a" {
		t.Errorf("expected parent 'a', got %q (ok=%v)", parent, ok)
	}
}

func TestDecodeRecord_MissingID(t *testing.T) {
	raw := map[string]types.AttributeValue{
		"label": &types.AttributeValueMemberS{Value: "no id"},
	}
	if _, err := DecodeRecord(raw); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
}

func TestDecodeRecord_WrongType(t *testing.T) {
	raw := map[string]types.AttributeValue{
		"id":    &types.AttributeValueMemberS{Value: "a"},
		"label": &types.AttributeValueMemberBOOL{Value: true},
	}
	if _, err := DecodeRecord(raw); err == nil {
		t.Error("expected decode error for boolean label")
	}
}

func TestEncodeRecord(t *testing.T) {
	raw, err := EncodeRecord(store.Child("b", "a", "B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := raw["parent_id"].(*types.AttributeValueMemberS); !ok || v.Value != "a" {
		t.Errorf("expected parent_id 'a', got %#v", raw["parent_id"])
	}
	if _, ok := raw["ttl"]; ok {
		t.Error("expected ttl to be omitted")
	}

	root, err := EncodeRecord(store.Root("a", "A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := root["parent_id"]; ok {
		t.Error("expected parent_id to be omitted for a root")
	}

	back, err := DecodeRecord(raw)
	if err != nil || back != store.Child("b", "a", "B") {
		t.Errorf("expected decoded record to match, got %+v (err=%v)", back, err)
	}
}

// --- IsExpired Tests ---

func TestIsExpired(t *testing.T) {
	now := fixedNow.Unix()

	tests := []struct {
		name     string
		raw      map[string]types.AttributeValue
		expected bool
	}{
		{"no ttl", rawItem("a", "", ""), false},
		{"past ttl", withTTL(rawItem("a", "", ""), now-10), true},
		{"ttl now", withTTL(rawItem("a", "", ""), now), true},
		{"future ttl", withTTL(rawItem("a", "", ""), now+10), false},
		{"wrong type", map[string]types.AttributeValue{"ttl": &types.AttributeValueMemberS{Value: "1"}}, false},
		{"unparseable", map[string]types.AttributeValue{"ttl": &types.AttributeValueMemberN{Value: "x"}}, false},
		{"nil item", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.raw, fixedNow); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// --- Load Tests ---

func TestLoad_Paginates(t *testing.T) {
	f := &fakeScanner{pages: [][]map[string]types.AttributeValue{
		{rawItem("b", "a", "B"), rawItem("a", "", "A")},
		{rawItem("c", "b", "C")},
	}}
	l := newTestLoader(f, DefaultConfig())

	recs, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := recordIDs(recs); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("expected [b a c], got %v", got)
	}
	if len(f.inputs) != 2 {
		t.Errorf("expected 2 scan calls, got %d", len(f.inputs))
	}
}

func TestLoad_ScanInput(t *testing.T) {
	f := &fakeScanner{pages: [][]map[string]types.AttributeValue{{}}}
	l := newTestLoader(f, Config{
		TableName:      "records",
		IndexName:      "by_parent",
		ConsistentRead: true,
		PageSize:       25,
	})

	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := f.inputs[0]
	if *in.TableName != "records" {
		t.Errorf("expected table 'records', got %q", *in.TableName)
	}
	if in.IndexName == nil || *in.IndexName != "by_parent" {
		t.Errorf("expected index 'by_parent', got %v", in.IndexName)
	}
	if in.ConsistentRead == nil || !*in.ConsistentRead {
		t.Error("expected consistent read")
	}
	if in.Limit == nil || *in.Limit != 25 {
		t.Errorf("expected limit 25, got %v", in.Limit)
	}
	if *in.FilterExpression != "attribute_not_exists(#ttl) OR #ttl > :now" {
		t.Errorf("unexpected filter %q", *in.FilterExpression)
	}
	if in.ExpressionAttributeNames["#ttl"] != "ttl" {
		t.Errorf("expected #ttl -> ttl, got %v", in.ExpressionAttributeNames)
	}
	now, ok := in.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberN)
	if !ok || now.Value != strconv.FormatInt(fixedNow.Unix(), 10) {
		t.Errorf("expected :now %d, got %#v", fixedNow.Unix(), in.ExpressionAttributeValues[":now"])
	}
}

func TestLoad_SkipsExpiredAndInvalid(t *testing.T) {
	f := &fakeScanner{pages: [][]map[string]types.AttributeValue{{
		rawItem("a", "", "A"),
		withTTL(rawItem("gone", "a", "Gone"), fixedNow.Unix()-1),
		{"label": &types.AttributeValueMemberS{Value: "no id"}},
		withTTL(rawItem("later", "a", "Later"), fixedNow.Unix()+60),
	}}}
	l := newTestLoader(f, DefaultConfig())

	recs, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := recordIDs(recs); !slices.Equal(got, []string{"a", "later"}) {
		t.Errorf("expected [a later], got %v", got)
	}
}

func TestLoad_ScanError(t *testing.T) {
	boom := errors.New("throttled")
	l := newTestLoader(&fakeScanner{err: boom}, DefaultConfig())

	if _, err := l.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped scan error, got %v", err)
	}
}

// --- Sync Tests ---

func TestSync(t *testing.T) {
	f := &fakeScanner{pages: [][]map[string]types.AttributeValue{{
		rawItem("b", "a", "B"),
		rawItem("a", "", "A"),
	}}}
	l := newTestLoader(f, DefaultConfig())
	s := store.New[string](store.DefaultConfig())

	n, err := l.Sync(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}
	if got := s.AncestorIDs("b"); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("expected [b a], got %v", got)
	}
}

func TestSync_DuplicateIDs(t *testing.T) {
	f := &fakeScanner{pages: [][]map[string]types.AttributeValue{{
		rawItem("a", "", "A"),
		rawItem("a", "", "A again"),
	}}}
	l := newTestLoader(f, DefaultConfig())
	s := store.New[string](store.DefaultConfig())
	_ = s.Insert(store.Root("keep", "Keep"))

	if _, err := l.Sync(context.Background(), s); !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if !s.Contains("keep") {
		t.Error("expected store to be left unchanged")
	}
}

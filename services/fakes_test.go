package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chefshare_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeStore is an in-memory RecordStore that reproduces the semantics the
// services rely on: conditional writes, delete-returns-old, exclusive range
// bounds, page limits applied before filters, and continuation cursors.
type fakeStore struct {
	mu sync.Mutex
	// key attribute names per table, in hash-then-sort order
	schemas map[string][]string
	tables  map[string]map[string]map[string]types.AttributeValue
	// pageSize caps items evaluated per Query/Scan page when set, forcing
	// multi-page reads regardless of the caller's limit
	pageSize int
	failPut  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		schemas: map[string][]string{
			"recipes":         {"partitionKey", "sort"},
			"pending-recipes": {"id"},
			"recipe-comments": {"recipeId", "creationDate"},
		},
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (fs *fakeStore) keyOf(table string, item map[string]types.AttributeValue) (string, map[string]string) {
	fields := fs.schemas[table]
	flat := make(map[string]string, len(fields))
	composite := ""
	for _, f := range fields {
		s, ok := item[f].(*types.AttributeValueMemberS)
		if !ok {
			return "", nil
		}
		flat[f] = s.Value
		composite += "/" + s.Value
	}
	return composite, flat
}

func (fs *fakeStore) compositeOf(table string, key map[string]string) string {
	composite := ""
	for _, f := range fs.schemas[table] {
		composite += "/" + key[f]
	}
	return composite
}

func (fs *fakeStore) items(table string) map[string]map[string]types.AttributeValue {
	if fs.tables[table] == nil {
		fs.tables[table] = map[string]map[string]types.AttributeValue{}
	}
	return fs.tables[table]
}

func conditionHolds(cond *Condition, existing map[string]types.AttributeValue) bool {
	if cond == nil {
		return true
	}
	if existing == nil {
		return false
	}
	s, ok := existing[cond.Field].(*types.AttributeValueMemberS)
	return ok && s.Value == cond.Equals
}

func (fs *fakeStore) Get(ctx context.Context, table string, key map[string]string) (map[string]types.AttributeValue, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	item, ok := fs.items(table)[fs.compositeOf(table, key)]
	if !ok {
		return nil, fmt.Errorf("get from table '%s': %w", table, ErrNotFound)
	}
	return item, nil
}

func (fs *fakeStore) Put(ctx context.Context, table string, item interface{}, cond *Condition) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failPut != nil {
		return fs.failPut
	}
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	composite, _ := fs.keyOf(table, marshaled)
	if composite == "" {
		return fmt.Errorf("item for table '%s' is missing key attributes", table)
	}
	if !conditionHolds(cond, fs.items(table)[composite]) {
		return fmt.Errorf("put in table '%s': %w", table, ErrConditionFailed)
	}
	fs.items(table)[composite] = marshaled
	return nil
}

func (fs *fakeStore) Delete(ctx context.Context, table string, key map[string]string, cond *Condition) (map[string]types.AttributeValue, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	composite := fs.compositeOf(table, key)
	existing, ok := fs.items(table)[composite]
	if cond != nil && !conditionHolds(cond, existing) {
		return nil, fmt.Errorf("delete from table '%s': %w", table, ErrConditionFailed)
	}
	if !ok {
		return nil, fmt.Errorf("delete from table '%s': %w", table, ErrNotFound)
	}
	delete(fs.items(table), composite)
	return existing, nil
}

func (fs *fakeStore) Query(ctx context.Context, q RangeQuery) (Page, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	type entry struct {
		sortValue string
		item      map[string]types.AttributeValue
	}
	var matched []entry
	for _, item := range fs.items(q.Table) {
		hash, ok := item[q.HashName].(*types.AttributeValueMemberS)
		if !ok || hash.Value != q.HashValue {
			continue
		}
		sortAttr, ok := item[q.SortName].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if q.SortFrom != "" && sortAttr.Value <= q.SortFrom {
			continue
		}
		matched = append(matched, entry{sortValue: sortAttr.Value, item: item})
	}
	sort.Slice(matched, func(i, j int) bool {
		if q.Descending {
			return matched[i].sortValue > matched[j].sortValue
		}
		return matched[i].sortValue < matched[j].sortValue
	})

	start := 0
	if cursorSort, ok := q.StartKey[q.SortName]; ok {
		for i, e := range matched {
			if e.sortValue == cursorSort {
				start = i + 1
				break
			}
		}
	}
	matched = matched[start:]

	// Limit bounds the items evaluated on this page; filters run after, so
	// a filtered page can come back short or empty with a cursor set.
	window := len(matched)
	if q.Limit > 0 && int(q.Limit) < window {
		window = int(q.Limit)
	}
	if fs.pageSize > 0 && fs.pageSize < window {
		window = fs.pageSize
	}

	page := Page{}
	for _, e := range matched[:window] {
		if filtersHold(q.Filters, e.item) {
			page.Items = append(page.Items, e.item)
		}
	}
	if window < len(matched) {
		_, flat := fs.keyOf(q.Table, matched[window-1].item)
		page.LastKey = flat
	}
	return page, nil
}

func (fs *fakeStore) Scan(ctx context.Context, table string, startKey map[string]string, limit int32) (Page, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	composites := make([]string, 0, len(fs.items(table)))
	for c := range fs.items(table) {
		composites = append(composites, c)
	}
	sort.Strings(composites)

	start := 0
	if len(startKey) > 0 {
		cursor := fs.compositeOf(table, startKey)
		for i, c := range composites {
			if c == cursor {
				start = i + 1
				break
			}
		}
	}
	composites = composites[start:]

	window := len(composites)
	if limit > 0 && int(limit) < window {
		window = int(limit)
	}
	if fs.pageSize > 0 && fs.pageSize < window {
		window = fs.pageSize
	}

	page := Page{}
	for _, c := range composites[:window] {
		page.Items = append(page.Items, fs.items(table)[c])
	}
	if window < len(composites) && window > 0 {
		_, flat := fs.keyOf(table, fs.items(table)[composites[window-1]])
		page.LastKey = flat
	}
	return page, nil
}

func filtersHold(filters []Filter, item map[string]types.AttributeValue) bool {
	for _, f := range filters {
		switch want := f.Value.(type) {
		case *types.AttributeValueMemberS:
			got, ok := item[f.Field].(*types.AttributeValueMemberS)
			if !ok || got.Value != want.Value {
				return false
			}
		case *types.AttributeValueMemberBOOL:
			got, ok := item[f.Field].(*types.AttributeValueMemberBOOL)
			if !ok || got.Value != want.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// fakeObjects records signed URLs and deletes instead of talking to S3.
type fakeObjects struct {
	mu      sync.Mutex
	signed  []string
	deleted []string
}

func (fo *fakeObjects) SignUpload(ctx context.Context, key string) (string, error) {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	fo.signed = append(fo.signed, key)
	return "https://signed.example.com/" + key, nil
}

func (fo *fakeObjects) SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (fo *fakeObjects) DeleteObject(ctx context.Context, bucket, key string) error {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	fo.deleted = append(fo.deleted, bucket+"/"+key)
	return nil
}

// fakeNotifier collects published notifications; async publishes run inline
// so tests can assert on them immediately.
type fakeNotifier struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (fn *fakeNotifier) Publish(ctx context.Context, note models.Notification) error {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	fn.notes = append(fn.notes, note)
	return nil
}

func (fn *fakeNotifier) PublishAsync(note models.Notification) {
	_ = fn.Publish(context.Background(), note)
}

func (fn *fakeNotifier) sent() []models.Notification {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return append([]models.Notification(nil), fn.notes...)
}

// fakeRegistry hands out deterministic endpoint and subscription ARNs.
type fakeRegistry struct {
	rotated       []string
	unsubscribed  []string
	subscriptions []string
}

func (fr *fakeRegistry) CreateEndpoint(ctx context.Context, token, username, platform string) (string, error) {
	return "arn:endpoint/" + username + "/" + token, nil
}

func (fr *fakeRegistry) RotateToken(ctx context.Context, endpoint, token string) error {
	fr.rotated = append(fr.rotated, endpoint+"="+token)
	return nil
}

func (fr *fakeRegistry) Subscribe(ctx context.Context, topicARN, endpoint, platform string) (string, error) {
	sub := "arn:subscription/" + topicARN + "/" + endpoint
	fr.subscriptions = append(fr.subscriptions, sub)
	return sub, nil
}

func (fr *fakeRegistry) Unsubscribe(ctx context.Context, subscriptionARN string) error {
	fr.unsubscribed = append(fr.unsubscribed, subscriptionARN)
	return nil
}

// fakeInvoker records async function invocations.
type fakeInvoker struct {
	calls []struct {
		Function string
		Payload  interface{}
	}
}

func (fi *fakeInvoker) InvokeAsync(ctx context.Context, function string, payload interface{}) error {
	fi.calls = append(fi.calls, struct {
		Function string
		Payload  interface{}
	}{function, payload})
	return nil
}

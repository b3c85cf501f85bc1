package controllers_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"chefshare_server/models"
	"chefshare_server/routes"
	"chefshare_server/services"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gorilla/mux"
)

// memStore is a minimal in-memory RecordStore for routing-level tests.
type memStore struct {
	mu      sync.Mutex
	schemas map[string][]string
	tables  map[string]map[string]map[string]types.AttributeValue
}

func newMemStore() *memStore {
	return &memStore{
		schemas: map[string][]string{
			"recipes":         {"partitionKey", "sort"},
			"pending-recipes": {"id"},
			"recipe-comments": {"recipeId", "creationDate"},
		},
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (ms *memStore) items(table string) map[string]map[string]types.AttributeValue {
	if ms.tables[table] == nil {
		ms.tables[table] = map[string]map[string]types.AttributeValue{}
	}
	return ms.tables[table]
}

func (ms *memStore) composite(table string, key map[string]string) string {
	out := ""
	for _, f := range ms.schemas[table] {
		out += "/" + key[f]
	}
	return out
}

func (ms *memStore) keyOf(table string, item map[string]types.AttributeValue) (string, map[string]string) {
	flat := map[string]string{}
	for _, f := range ms.schemas[table] {
		s, ok := item[f].(*types.AttributeValueMemberS)
		if !ok {
			return "", nil
		}
		flat[f] = s.Value
	}
	return ms.composite(table, flat), flat
}

func (ms *memStore) Get(ctx context.Context, table string, key map[string]string) (map[string]types.AttributeValue, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	item, ok := ms.items(table)[ms.composite(table, key)]
	if !ok {
		return nil, fmt.Errorf("get from table '%s': %w", table, services.ErrNotFound)
	}
	return item, nil
}

func (ms *memStore) Put(ctx context.Context, table string, item interface{}, cond *services.Condition) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	composite, _ := ms.keyOf(table, marshaled)
	if !ms.conditionHolds(cond, ms.items(table)[composite]) {
		return fmt.Errorf("put in table '%s': %w", table, services.ErrConditionFailed)
	}
	ms.items(table)[composite] = marshaled
	return nil
}

func (ms *memStore) Delete(ctx context.Context, table string, key map[string]string, cond *services.Condition) (map[string]types.AttributeValue, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	composite := ms.composite(table, key)
	existing, ok := ms.items(table)[composite]
	if cond != nil && !ms.conditionHolds(cond, existing) {
		return nil, fmt.Errorf("delete from table '%s': %w", table, services.ErrConditionFailed)
	}
	if !ok {
		return nil, fmt.Errorf("delete from table '%s': %w", table, services.ErrNotFound)
	}
	delete(ms.items(table), composite)
	return existing, nil
}

func (ms *memStore) conditionHolds(cond *services.Condition, existing map[string]types.AttributeValue) bool {
	if cond == nil {
		return true
	}
	if existing == nil {
		return false
	}
	s, ok := existing[cond.Field].(*types.AttributeValueMemberS)
	return ok && s.Value == cond.Equals
}

func (ms *memStore) Query(ctx context.Context, q services.RangeQuery) (services.Page, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	type entry struct {
		sortValue string
		item      map[string]types.AttributeValue
	}
	var matched []entry
	for _, item := range ms.items(q.Table) {
		hash, ok := item[q.HashName].(*types.AttributeValueMemberS)
		if !ok || hash.Value != q.HashValue {
			continue
		}
		sortAttr, ok := item[q.SortName].(*types.AttributeValueMemberS)
		if !ok || (q.SortFrom != "" && sortAttr.Value <= q.SortFrom) {
			continue
		}
		if !ms.filtersHold(q.Filters, item) {
			continue
		}
		matched = append(matched, entry{sortAttr.Value, item})
	}
	sort.Slice(matched, func(i, j int) bool {
		if q.Descending {
			return matched[i].sortValue > matched[j].sortValue
		}
		return matched[i].sortValue < matched[j].sortValue
	})

	page := services.Page{}
	for _, e := range matched {
		page.Items = append(page.Items, e.item)
	}
	return page, nil
}

func (ms *memStore) filtersHold(filters []services.Filter, item map[string]types.AttributeValue) bool {
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

func (ms *memStore) Scan(ctx context.Context, table string, startKey map[string]string, limit int32) (services.Page, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	page := services.Page{}
	for _, item := range ms.items(table) {
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// stubIdentity resolves bearer tokens from a fixed map.
type stubIdentity struct {
	users map[string]string
}

func (si *stubIdentity) Lookup(ctx context.Context, accessToken string) (string, error) {
	username, ok := si.users[accessToken]
	if !ok {
		return "", fmt.Errorf("identity lookup failed: %w", services.ErrUnauthorized)
	}
	return username, nil
}

type stubObjects struct{}

func (stubObjects) SignUpload(ctx context.Context, key string) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (stubObjects) SignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (stubObjects) DeleteObject(ctx context.Context, bucket, key string) error { return nil }

type stubNotifier struct{}

func (stubNotifier) Publish(ctx context.Context, note models.Notification) error { return nil }
func (stubNotifier) PublishAsync(note models.Notification)                       {}

type stubRegistry struct{}

func (stubRegistry) CreateEndpoint(ctx context.Context, token, username, platform string) (string, error) {
	return "arn:endpoint/" + username, nil
}

func (stubRegistry) RotateToken(ctx context.Context, endpoint, token string) error { return nil }

func (stubRegistry) Subscribe(ctx context.Context, topicARN, endpoint, platform string) (string, error) {
	return "arn:subscription/" + topicARN, nil
}

func (stubRegistry) Unsubscribe(ctx context.Context, subscriptionARN string) error { return nil }

type stubInvoker struct{}

func (stubInvoker) InvokeAsync(ctx context.Context, function string, payload interface{}) error {
	return nil
}

type testServer struct {
	*httptest.Server
	store   *memStore
	staging *services.StagingService
	recipes *services.RecipeService
	users   *services.UserService
}

// newTestServer wires the full route table over in-memory backends. The
// tokens map grants bearer tokens to usernames.
func newTestServer(t *testing.T, tokens map[string]string) *testServer {
	t.Helper()
	store := newMemStore()
	identity := &stubIdentity{users: tokens}

	content := &services.ContentService{Store: store, Table: "recipes"}
	staging := &services.StagingService{
		Store:         store,
		Objects:       stubObjects{},
		Table:         "pending-recipes",
		ContentFolder: "content",
		ImageFolder:   "images",
		MaxFiles:      6,
		TTL:           24 * time.Hour,
	}
	users := &services.UserService{
		Store:              store,
		Registry:           stubRegistry{},
		Table:              "recipes",
		NewRecipesTopicARN: "arn:topic/newRecipes",
		AppUpdatesTopicARN: "arn:topic/appUpdates",
	}
	recipes := &services.RecipeService{
		Store:             store,
		Content:           content,
		Staging:           staging,
		Users:             users,
		Objects:           stubObjects{},
		Notifier:          stubNotifier{},
		Invoker:           stubInvoker{},
		Table:             "recipes",
		NewRecipesTopic:   "newRecipes",
		ThumbnailFunction: "thumbnail-generator",
		ThumbnailFolder:   "thumbnails",
		PageLimit:         25,
	}
	engagement := &services.EngagementService{
		Recipes:      recipes,
		Users:        users,
		Store:        store,
		Notifier:     stubNotifier{},
		CommentTable: "recipe-comments",
	}
	apps := &services.AppService{
		Store:           store,
		Objects:         stubObjects{},
		Notifier:        stubNotifier{},
		Table:           "recipes",
		AppFolder:       "app_versions",
		AppUpdatesTopic: "appUpdates",
		MinSdk:          21,
		DownloadExpiry:  2 * time.Minute,
	}

	r := mux.NewRouter()
	routes.RegisterRecipeRoutes(r, recipes, engagement, staging, content, identity)
	routes.RegisterUserRoutes(r, users, apps, identity)
	routes.RegisterEventRoutes(r, recipes, apps)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testServer{Server: server, store: store, staging: staging, recipes: recipes, users: users}
}

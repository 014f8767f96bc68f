package caching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"catalogfacets/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResultKind names the three cached storefront results
type ResultKind string

const (
	KindProducts ResultKind = "products"
	KindFacets   ResultKind = "facets"
	KindPrices   ResultKind = "prices"
)

// Generation is the pair of invalidation counters a result was computed
// under: the global one and the category's own.
type Generation struct {
	All      int64
	Category int64
}

// ResultKey identifies one cached result: a category, a result kind and the
// canonical form of the filter query. Generation is not part of the redis key;
// a write only lands if the counters are still at Generation.
type ResultKey struct {
	CategoryID uuid.UUID
	Kind       ResultKind
	Query      models.FilterQuery
	Generation Generation
}

// Canonical renders the query independent of predicate order
func (k ResultKey) Canonical() string {
	parts := make([]string, 0, len(k.Query.Predicates))
	for _, p := range k.Query.Predicates {
		value := p.Value
		if p.Range != nil {
			value = formatFloat(p.Range.Min) + ".." + formatFloat(p.Range.Max)
		}
		parts = append(parts, p.AttributeID.String()+"="+value)
	}
	sort.Strings(parts)

	var b strings.Builder
	b.WriteString(strings.Join(parts, "&"))
	if r := k.Query.PriceRange; r != nil {
		b.WriteString("|price=" + formatFloat(r.Min) + ".." + formatFloat(r.Max))
	}
	b.WriteString("|sort=" + k.Query.Sort)
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ResultCache stores filter results until a catalog change invalidates them.
// Callers read Generation before loading the data a result is computed from
// and pass it in the key of the Set call.
type ResultCache interface {
	Generation(ctx context.Context, categoryID uuid.UUID) (Generation, error)
	GetProducts(ctx context.Context, key ResultKey) ([]*models.Product, bool, error)
	SetProducts(ctx context.Context, key ResultKey, products []*models.Product) error
	GetFacets(ctx context.Context, key ResultKey) ([]models.FacetGroup, bool, error)
	SetFacets(ctx context.Context, key ResultKey, groups []models.FacetGroup) error
	GetPriceBuckets(ctx context.Context, key ResultKey) ([]models.PriceBucket, bool, error)
	SetPriceBuckets(ctx context.Context, key ResultKey, buckets []models.PriceBucket) error

	// InvalidateCategories drops every result cached for the given categories.
	InvalidateCategories(ctx context.Context, categoryIDs []uuid.UUID) error
	InvalidateAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

type redisResultCache struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// ParseRedisAddr strips a redis:// or rediss:// scheme from addr
func ParseRedisAddr(addr string) string {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}
	return addr
}

// NewRedisClient connects to Redis, accepting redis:// and rediss:// addresses.
func NewRedisClient(addr, password string, db int, log *zap.Logger) *redis.Client {
	parsedAddr := ParseRedisAddr(addr)

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	} else {
		log.Debug("redis connection established", zap.String("addr", parsedAddr))
	}
	return client
}

func NewRedisResultCache(client *redis.Client, prefix string, log *zap.Logger) ResultCache {
	return &redisResultCache{client: client, prefix: prefix, log: log}
}

func (r *redisResultCache) allGenerationKey() string {
	return r.prefix + ":gen:all"
}

func (r *redisResultCache) generationKey(categoryID uuid.UUID) string {
	return fmt.Sprintf("%s:gen:%s", r.prefix, categoryID)
}

// categoryPattern matches every key of one category
func (r *redisResultCache) categoryPattern(categoryID uuid.UUID) string {
	return fmt.Sprintf("%s:results:%s:*", r.prefix, categoryID)
}

// Key returns the redis key of a result
func (r *redisResultCache) Key(key ResultKey) string {
	sum := sha256.Sum256([]byte(key.Canonical()))
	return fmt.Sprintf("%s:results:%s:%s:%s", r.prefix, key.CategoryID, key.Kind, hex.EncodeToString(sum[:16]))
}

func getJSON[T any](ctx context.Context, client *redis.Client, key string) (T, bool, error) {
	var out T
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, false, nil
		}
		return out, false, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, err
	}
	return out, true, nil
}

// setIfCurrentScript stores ARGV[3] at KEYS[3] only while both generation
// counters still hold the values the result was computed under.
const setIfCurrentScript = `
if (redis.call('GET', KEYS[1]) or '0') ~= ARGV[1] then return 0 end
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[2] then return 0 end
redis.call('SET', KEYS[3], ARGV[3])
return 1`

func (r *redisResultCache) Generation(ctx context.Context, categoryID uuid.UUID) (Generation, error) {
	vals, err := r.client.MGet(ctx, r.allGenerationKey(), r.generationKey(categoryID)).Result()
	if err != nil {
		return Generation{}, err
	}
	if len(vals) != 2 {
		return Generation{}, fmt.Errorf("generation lookup returned %d values", len(vals))
	}
	var gen Generation
	if gen.All, err = parseCounter(vals[0]); err != nil {
		return Generation{}, err
	}
	if gen.Category, err = parseCounter(vals[1]); err != nil {
		return Generation{}, err
	}
	return gen, nil
}

// parseCounter reads an INCR counter; a missing key is generation 0
func parseCounter(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// setJSON writes a result with no expiry. Entries live until invalidated, so a
// result computed before an invalidation must never land after it.
func (r *redisResultCache) setJSON(ctx context.Context, key ResultKey, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	stored, err := r.client.Eval(ctx, setIfCurrentScript,
		[]string{r.allGenerationKey(), r.generationKey(key.CategoryID), r.Key(key)},
		strconv.FormatInt(key.Generation.All, 10),
		strconv.FormatInt(key.Generation.Category, 10),
		string(data),
	).Int64()
	if err != nil {
		return err
	}
	if stored == 0 {
		r.log.Debug("discarded result computed before an invalidation",
			zap.String("category_id", key.CategoryID.String()),
			zap.String("kind", string(key.Kind)))
	}
	return nil
}

func (r *redisResultCache) GetProducts(ctx context.Context, key ResultKey) ([]*models.Product, bool, error) {
	return getJSON[[]*models.Product](ctx, r.client, r.Key(key))
}

func (r *redisResultCache) SetProducts(ctx context.Context, key ResultKey, products []*models.Product) error {
	return r.setJSON(ctx, key, products)
}

func (r *redisResultCache) GetFacets(ctx context.Context, key ResultKey) ([]models.FacetGroup, bool, error) {
	return getJSON[[]models.FacetGroup](ctx, r.client, r.Key(key))
}

func (r *redisResultCache) SetFacets(ctx context.Context, key ResultKey, groups []models.FacetGroup) error {
	return r.setJSON(ctx, key, groups)
}

func (r *redisResultCache) GetPriceBuckets(ctx context.Context, key ResultKey) ([]models.PriceBucket, bool, error) {
	return getJSON[[]models.PriceBucket](ctx, r.client, r.Key(key))
}

func (r *redisResultCache) SetPriceBuckets(ctx context.Context, key ResultKey, buckets []models.PriceBucket) error {
	return r.setJSON(ctx, key, buckets)
}

// InvalidateCategories bumps each category's generation before deleting its
// results, so in-flight writes computed from older data are rejected.
func (r *redisResultCache) InvalidateCategories(ctx context.Context, categoryIDs []uuid.UUID) error {
	for _, id := range categoryIDs {
		if err := r.client.Incr(ctx, r.generationKey(id)).Err(); err != nil {
			return fmt.Errorf("bump generation of %s: %w", id, err)
		}
		if err := r.deletePattern(ctx, r.categoryPattern(id)); err != nil {
			return fmt.Errorf("invalidate category %s: %w", id, err)
		}
	}
	return nil
}

func (r *redisResultCache) InvalidateAll(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.allGenerationKey()).Err(); err != nil {
		return fmt.Errorf("bump global generation: %w", err)
	}
	return r.deletePattern(ctx, r.prefix+":results:*")
}

func (r *redisResultCache) deletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	r.log.Debug("invalidated cached results", zap.String("pattern", pattern), zap.Int("keys", deleted))
	return nil
}

func (r *redisResultCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// noopResultCache is used when caching is disabled
type noopResultCache struct{}

func NewNoopResultCache() ResultCache {
	return noopResultCache{}
}

func (noopResultCache) Generation(context.Context, uuid.UUID) (Generation, error) {
	return Generation{}, nil
}

func (noopResultCache) GetProducts(context.Context, ResultKey) ([]*models.Product, bool, error) {
	return nil, false, nil
}

func (noopResultCache) SetProducts(context.Context, ResultKey, []*models.Product) error {
	return nil
}

func (noopResultCache) GetFacets(context.Context, ResultKey) ([]models.FacetGroup, bool, error) {
	return nil, false, nil
}

func (noopResultCache) SetFacets(context.Context, ResultKey, []models.FacetGroup) error {
	return nil
}

func (noopResultCache) GetPriceBuckets(context.Context, ResultKey) ([]models.PriceBucket, bool, error) {
	return nil, false, nil
}

func (noopResultCache) SetPriceBuckets(context.Context, ResultKey, []models.PriceBucket) error {
	return nil
}

func (noopResultCache) InvalidateCategories(context.Context, []uuid.UUID) error {
	return nil
}

func (noopResultCache) InvalidateAll(context.Context) error {
	return nil
}

func (noopResultCache) Ping(context.Context) error {
	return nil
}

// Package mongo implements store.Store on MongoDB. Partitions are collections;
// cold partition patterns are resolved against the collection list.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

const (
	templatesCollection = "_partition_templates"
	vectorIndexName     = "vector_index"
	partitionField      = "_partition"
	scoreField          = "_score"
)

// Config holds connection settings.
type Config struct {
	URI      string
	Database string
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New connects to MongoDB. The connection is lazy; use WaitForReady to block
// until the server answers.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return newStore(client, cfg.Database, logger), nil
}

func newStore(client *mongo.Client, database string, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger.Named("mongo"),
	}
}

// WaitForReady pings with exponential backoff until the server answers or timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	op := func() error {
		err := s.Ping(ctx)
		if err != nil {
			s.logger.Debug("mongo not ready", zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("mongo not ready after %s: %w", timeout, err)
	}
	return nil
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return store.Wrap(store.OpPing, s.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Exists reports whether a collection exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, store.Wrap(store.OpExists, err)
	}
	return len(names) > 0, nil
}

// CreatePartition creates a collection and the indexes its schema asks for.
func (s *Store) CreatePartition(ctx context.Context, name string, schema *store.Schema) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return &store.Error{Op: store.OpCreate, Err: fmt.Errorf("%s: %w", name, store.ErrPartitionExists)}
	}
	if err := s.db.CreateCollection(ctx, name); err != nil {
		return store.Wrap(store.OpCreate, err)
	}
	return s.ensureIndexes(ctx, name, schema)
}

// CreatePartitionTemplate stores the schema applied to collections created
// later under pattern, and applies it to the ones that already exist.
func (s *Store) CreatePartitionTemplate(ctx context.Context, pattern string, schema *store.Schema) error {
	raw, err := bson.Marshal(schemaDoc(schema))
	if err != nil {
		return store.Wrap(store.OpCreateTemplate, err)
	}
	_, err = s.db.Collection(templatesCollection).ReplaceOne(ctx,
		bson.M{"_id": pattern},
		bson.M{"_id": pattern, "schema": bson.Raw(raw)},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return store.Wrap(store.OpCreateTemplate, err)
	}

	names, err := s.resolve(ctx, []string{pattern})
	if err != nil {
		return store.Wrap(store.OpCreateTemplate, err)
	}
	for _, n := range names {
		if err := s.ensureIndexes(ctx, n, schema); err != nil {
			return err
		}
	}
	return nil
}

// Search runs a filtered, sorted, paged search or a k-NN search.
func (s *Store) Search(ctx context.Context, req *store.SearchRequest) (*store.SearchResult, error) {
	filter, err := makeFilter(req.Query)
	if err != nil {
		return nil, store.Wrap(store.OpSearch, err)
	}
	names, err := s.resolve(ctx, req.Partitions)
	if err != nil {
		return nil, store.Wrap(store.OpSearch, err)
	}
	if len(names) == 0 {
		return &store.SearchResult{}, nil
	}
	if req.KNN != nil {
		return s.searchKNN(ctx, names, filter, req)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{partitionField: names[0]}}},
	}
	for _, n := range names[1:] {
		pipeline = append(pipeline, bson.D{{Key: "$unionWith", Value: bson.M{
			"coll": n,
			"pipeline": bson.A{
				bson.M{"$match": filter},
				bson.M{"$addFields": bson.M{partitionField: n}},
			},
		}}})
	}

	page := bson.A{bson.M{"$sort": makeSort(req.Sort)}}
	if req.From > 0 {
		page = append(page, bson.M{"$skip": req.From})
	}
	if req.Size > 0 {
		page = append(page, bson.M{"$limit": req.Size})
	}
	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.M{
		"total": bson.A{bson.M{"$count": "n"}},
		"hits":  page,
	}}})

	cur, err := s.db.Collection(names[0]).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, store.Wrap(store.OpSearch, err)
	}
	var out []struct {
		Total []struct {
			N int `bson:"n"`
		} `bson:"total"`
		Hits []bson.M `bson:"hits"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, store.Wrap(store.OpSearch, err)
	}

	res := &store.SearchResult{}
	if len(out) == 0 {
		return res, nil
	}
	if len(out[0].Total) > 0 {
		res.Total = out[0].Total[0].N
	}
	for _, raw := range out[0].Hits {
		res.Hits = append(res.Hits, toHit(raw))
	}
	return res, nil
}

type candidate struct {
	ID        any     `bson:"_id"`
	Score     float64 `bson:"_score"`
	partition string
}

// searchKNN takes the global top K by vector score, then applies the filter
// to those candidates only.
func (s *Store) searchKNN(ctx context.Context, names []string, filter bson.M, req *store.SearchRequest) (*store.SearchResult, error) {
	k := req.KNN
	var cands []candidate
	for _, n := range names {
		pipeline := mongo.Pipeline{
			{{Key: "$vectorSearch", Value: bson.M{
				"index":         vectorIndexName,
				"path":          k.Field,
				"queryVector":   k.Vector,
				"numCandidates": k.NumCandidates,
				"limit":         k.K,
			}}},
			{{Key: "$project", Value: bson.M{"_id": 1, scoreField: bson.M{"$meta": "vectorSearchScore"}}}},
		}
		cur, err := s.db.Collection(n).Aggregate(ctx, pipeline)
		if err != nil {
			return nil, store.Wrap(store.OpSearch, err)
		}
		var part []candidate
		if err := cur.All(ctx, &part); err != nil {
			return nil, store.Wrap(store.OpSearch, err)
		}
		for i := range part {
			part[i].partition = n
		}
		cands = append(cands, part...)
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	if k.K > 0 && len(cands) > k.K {
		cands = cands[:k.K]
	}

	byPartition := make(map[string]bson.A)
	scores := make(map[string]float64, len(cands))
	for _, c := range cands {
		if k.MinScore != nil && c.Score < *k.MinScore {
			continue
		}
		byPartition[c.partition] = append(byPartition[c.partition], c.ID)
		scores[c.partition+"\x00"+idString(c.ID)] = c.Score
	}

	var hits []store.Hit
	for _, n := range names {
		ids, ok := byPartition[n]
		if !ok {
			continue
		}
		f := bson.M{"$and": bson.A{bson.M{"_id": bson.M{"$in": ids}}, filter}}
		cur, err := s.db.Collection(n).Find(ctx, f)
		if err != nil {
			return nil, store.Wrap(store.OpSearch, err)
		}
		var docs []bson.M
		if err := cur.All(ctx, &docs); err != nil {
			return nil, store.Wrap(store.OpSearch, err)
		}
		for _, raw := range docs {
			h := toHit(raw)
			h.Partition = n
			h.Score = scores[n+"\x00"+h.ID]
			hits = append(hits, h)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return &store.SearchResult{Total: len(hits), Hits: hits}, nil
}

// BulkWrite upserts docs in one unordered bulk call.
func (s *Store) BulkWrite(ctx context.Context, partition string, docs []store.Document) ([]store.ItemResult, error) {
	results := make([]store.ItemResult, len(docs))
	models := make([]mongo.WriteModel, 0, len(docs))
	modelIdx := make([]int, 0, len(docs))

	for i, d := range docs {
		results[i].ID = d.ID
		if d.ID == "" || d.Source == nil {
			results[i].Err = fmt.Errorf("document %d: %w", i, store.ErrInvalidDocument)
			continue
		}
		body := make(bson.M, len(d.Source)+1)
		for k, v := range d.Source {
			body[k] = v
		}
		body["_id"] = d.ID
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": d.ID}).
			SetReplacement(body).
			SetUpsert(true))
		modelIdx = append(modelIdx, i)
	}
	if len(models) == 0 {
		return results, nil
	}

	_, err := s.db.Collection(partition).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err == nil {
		return results, nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return nil, store.Wrap(store.OpBulk, err)
	}
	for _, we := range bwe.WriteErrors {
		if we.Index < 0 || we.Index >= len(modelIdx) {
			continue
		}
		results[modelIdx[we.Index]].Err = fmt.Errorf("%w: %s", store.ErrInvalidDocument, we.Message)
	}
	return results, nil
}

// Reindex copies the matching documents of every source into dest with $merge.
// dest is indexed from its template before anything is copied, so an error
// that is not a copy error leaves dest without new documents.
func (s *Store) Reindex(ctx context.Context, sources []string, q query.Query, dest string) (int64, error) {
	filter, err := makeFilter(q)
	if err != nil {
		return 0, store.Wrap(store.OpReindex, err)
	}
	names, err := s.resolve(ctx, sources)
	if err != nil {
		return 0, store.Wrap(store.OpReindex, err)
	}
	if err := s.applyTemplate(ctx, dest); err != nil {
		return 0, err
	}

	var copied int64
	for _, n := range names {
		coll := s.db.Collection(n)
		count, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return copied, store.Wrap(store.OpReindex, err)
		}
		if count == 0 {
			continue
		}
		cur, err := coll.Aggregate(ctx, mongo.Pipeline{
			{{Key: "$match", Value: filter}},
			{{Key: "$merge", Value: bson.M{
				"into":           dest,
				"on":             "_id",
				"whenMatched":    "replace",
				"whenNotMatched": "insert",
			}}},
		})
		if err != nil {
			return copied, store.Wrap(store.OpReindex, err)
		}
		if err := cur.Close(ctx); err != nil {
			return copied, store.Wrap(store.OpReindex, err)
		}
		copied += count
	}
	return copied, nil
}

// DeleteByQuery removes the matching documents from a partition.
func (s *Store) DeleteByQuery(ctx context.Context, partition string, q query.Query) (int64, error) {
	filter, err := makeFilter(q)
	if err != nil {
		return 0, store.Wrap(store.OpDeleteByQuery, err)
	}
	if err := s.mustExist(ctx, store.OpDeleteByQuery, partition); err != nil {
		return 0, err
	}
	res, err := s.db.Collection(partition).DeleteMany(ctx, filter)
	if err != nil {
		return 0, store.Wrap(store.OpDeleteByQuery, err)
	}
	return res.DeletedCount, nil
}

// AggregateByYear groups matching documents by the calendar year of field.
func (s *Store) AggregateByYear(ctx context.Context, partition, field string, q query.Query) (map[int]int64, error) {
	filter, err := makeFilter(q)
	if err != nil {
		return nil, store.Wrap(store.OpAggregate, err)
	}
	if err := s.mustExist(ctx, store.OpAggregate, partition); err != nil {
		return nil, err
	}
	cur, err := s.db.Collection(partition).Aggregate(ctx, yearPipeline(filter, field))
	if err != nil {
		return nil, store.Wrap(store.OpAggregate, err)
	}
	var buckets []struct {
		Year  int   `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, store.Wrap(store.OpAggregate, err)
	}
	out := make(map[int]int64, len(buckets))
	for _, b := range buckets {
		out[b.Year] = b.Count
	}
	return out, nil
}

func yearPipeline(filter bson.M, field string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$year": "$" + field},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// Scan pages through a partition ordered by _id.
func (s *Store) Scan(ctx context.Context, partition, afterID string, limit int) ([]store.Document, error) {
	if err := s.mustExist(ctx, store.OpScan, partition); err != nil {
		return nil, err
	}
	filter := bson.M{}
	if afterID != "" {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.db.Collection(partition).Find(ctx, filter, opts)
	if err != nil {
		return nil, store.Wrap(store.OpScan, err)
	}
	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, store.Wrap(store.OpScan, err)
	}
	docs := make([]store.Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, toHit(raw).Document)
	}
	return docs, nil
}

func (s *Store) mustExist(ctx context.Context, op, name string) error {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return &store.Error{Op: op, Err: fmt.Errorf("%s: %w", name, store.ErrPartitionNotFound)}
	}
	return nil
}

// resolve expands '*' patterns to existing collection names. A missing
// concrete partition is an error; a pattern matching nothing is not.
func (s *Store) resolve(ctx context.Context, names []string) ([]string, error) {
	var out []string
	for _, n := range names {
		prefix, ok := strings.CutSuffix(n, "*")
		if !ok {
			exists, err := s.Exists(ctx, n)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, fmt.Errorf("%s: %w", n, store.ErrPartitionNotFound)
			}
			out = append(out, n)
			continue
		}
		matched, err := s.db.ListCollectionNames(ctx, bson.M{
			"name": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)},
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(matched)
		out = append(out, matched...)
	}
	return out, nil
}

// applyTemplate indexes a lazily created partition with the schema of the
// first template whose pattern covers it.
func (s *Store) applyTemplate(ctx context.Context, name string) error {
	cur, err := s.db.Collection(templatesCollection).Find(ctx, bson.M{})
	if err != nil {
		return store.Wrap(store.OpCreateTemplate, err)
	}
	var tmpls []struct {
		Pattern string `bson:"_id"`
		Schema  bson.Raw
	}
	if err := cur.All(ctx, &tmpls); err != nil {
		return store.Wrap(store.OpCreateTemplate, err)
	}
	for _, t := range tmpls {
		if !strings.HasPrefix(name, strings.TrimSuffix(t.Pattern, "*")) {
			continue
		}
		var sd schemaDocument
		if err := bson.Unmarshal(t.Schema, &sd); err != nil {
			return store.Wrap(store.OpCreateTemplate, err)
		}
		return s.ensureIndexes(ctx, name, sd.schema())
	}
	return nil
}

// ensureIndexes creates the indexes for schema. Vector fields get an Atlas
// vector search index; deployments without search support log a warning.
func (s *Store) ensureIndexes(ctx context.Context, name string, schema *store.Schema) error {
	if schema == nil {
		return nil
	}
	coll := s.db.Collection(name)
	models := indexModels(schema)
	if len(models) > 0 {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return store.Wrap(store.OpCreate, err)
		}
	}

	if def := vectorIndexDefinition(schema); def != nil {
		_, err := coll.SearchIndexes().CreateOne(ctx, mongo.SearchIndexModel{
			Definition: def,
			Options:    options.SearchIndexes().SetName(vectorIndexName).SetType("vectorSearch"),
		})
		if err != nil {
			s.logger.Warn("vector search index not created",
				zap.String("partition", name),
				zap.Error(err),
			)
		}
	}
	return nil
}

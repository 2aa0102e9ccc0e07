package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

func TestMakeFilter(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		q    query.Query
		want bson.M
	}{
		{"match all", query.MatchAll{}, bson.M{}},
		{"term", query.Term{Field: "nationalId", Value: "A1"}, bson.M{"nationalId": "A1"}},
		{
			"case-insensitive term escapes regex",
			query.Term{Field: "email", Value: "a.b+c@x.io", CaseInsensitive: true},
			bson.M{"email": bson.M{"$regex": `^a\.b\+c@x\.io$`, "$options": "i"}},
		},
		{"terms", query.Terms{Field: "role", Values: []any{"A", "B"}}, bson.M{"role": bson.M{"$in": bson.A{"A", "B"}}}},
		{
			"range",
			query.Range{Field: "createdAt", GTE: ts, LT: ts.AddDate(1, 0, 0)},
			bson.M{"createdAt": bson.M{"$gte": ts, "$lt": ts.AddDate(1, 0, 0)}},
		},
		{
			"single must unwrapped",
			query.And(query.Term{Field: "a", Value: 1}),
			bson.M{"a": 1},
		},
		{
			"must and should",
			query.Bool{
				Must:               []query.Query{query.Term{Field: "a", Value: 1}},
				Should:             []query.Query{query.Term{Field: "b", Value: 2}, query.Term{Field: "c", Value: 3}},
				MinimumShouldMatch: 1,
			},
			bson.M{"$and": bson.A{
				bson.M{"a": 1},
				bson.M{"$or": bson.A{bson.M{"b": 2}, bson.M{"c": 3}}},
			}},
		},
		{
			"nested becomes elemMatch",
			query.Nested{Path: "clients", Query: query.And(
				query.Term{Field: "clientId", Value: "C1"},
				query.Term{Field: "role", Value: "Spouse"},
			)},
			bson.M{"clients": bson.M{"$elemMatch": bson.M{"$and": bson.A{
				bson.M{"clientId": "C1"},
				bson.M{"role": "Spouse"},
			}}}},
		},
		{
			"match",
			query.Match{Fields: []string{"name", "description"}, Text: "red"},
			bson.M{"$or": bson.A{
				bson.M{"name": bson.M{"$regex": `\bred\b`, "$options": "i"}},
				bson.M{"description": bson.M{"$regex": `\bred\b`, "$options": "i"}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := makeFilter(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMakeFilter_Unsupported(t *testing.T) {
	q := query.Bool{Should: []query.Query{query.MatchAll{}, query.MatchAll{}}, MinimumShouldMatch: 2}
	_, err := makeFilter(q)
	require.ErrorIs(t, err, store.ErrUnsupportedQuery)
}

func TestMakeSort(t *testing.T) {
	got := makeSort([]query.Sort{{Field: "createdAt", Order: query.Desc}})
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}, got)
}

func TestYearPipeline(t *testing.T) {
	p := yearPipeline(bson.M{"a": 1}, "createdAt")
	require.Len(t, p, 3)
	group := p[1][0].Value.(bson.M)
	assert.Equal(t, bson.M{"$year": "$createdAt"}, group["_id"])
}

func TestToHit_Normalizes(t *testing.T) {
	ts := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	raw := bson.M{
		"_id":          "doc-1",
		partitionField: "products",
		"createdAt":    primitive.NewDateTimeFromTime(ts),
		"tags":         primitive.A{"a", "b"},
		"variants":     primitive.A{bson.M{"stock": int32(3)}},
		"meta":         bson.D{{Key: "k", Value: "v"}},
	}
	h := toHit(raw)
	assert.Equal(t, "doc-1", h.ID)
	assert.Equal(t, "products", h.Partition)
	assert.Equal(t, ts, h.Source["createdAt"])
	assert.Equal(t, []any{"a", "b"}, h.Source["tags"])
	assert.Equal(t, []any{map[string]any{"stock": int64(3)}}, h.Source["variants"])
	assert.Equal(t, map[string]any{"k": "v"}, h.Source["meta"])
	assert.NotContains(t, h.Source, "_id")
	assert.NotContains(t, h.Source, partitionField)
}

func TestSchemaRoundTripAndIndexes(t *testing.T) {
	s := store.NewSchema().
		Keyword("category").
		Text("name").
		Text("description").
		Date("createdAt").
		Nested("variants", func(b *store.SchemaBuilder) { b.Keyword("sku") }).
		Vector("embedding", 8, store.SimilarityCosine).
		MustBuild()

	raw, err := bson.Marshal(schemaDoc(s))
	require.NoError(t, err)
	var back schemaDocument
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, s.String(), back.schema().String())

	models := indexModels(s)
	require.Len(t, models, 4)
	assert.Equal(t, bson.D{{Key: "variants.sku", Value: 1}}, models[2].Keys)
	assert.Equal(t, bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}, models[3].Keys)

	def := vectorIndexDefinition(s)
	require.NotNil(t, def)
	fields := def["fields"].(bson.A)
	assert.Equal(t, 8, fields[0].(bson.M)["numDimensions"])
}

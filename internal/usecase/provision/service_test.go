package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain"
	"github.com/kailas-cloud/dossier/internal/domain/partition"
	"github.com/kailas-cloud/dossier/internal/store"
	"github.com/kailas-cloud/dossier/internal/store/memory"
)

func collections(t *testing.T) []Collection {
	t.Helper()
	products, err := ProductSchema(4)
	require.NoError(t, err)
	return []Collection{
		{Name: "products", Scheme: partition.Scheme{Hot: "products", ColdPrefix: "products-archive-"}, Schema: products},
		{Name: "applications", Scheme: partition.Scheme{Hot: "applications"}, Schema: LegacyApplicationSchema()},
	}
}

func TestInit_CreatesHotAndTemplate(t *testing.T) {
	st := memory.New()
	svc := New(st, collections(t), 0, zap.NewNop())

	res, err := svc.Init(context.Background(), "products")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "Created partition 'products'", res.Message)

	schema, ok := st.Schema("products")
	require.True(t, ok)
	require.Len(t, schema.Vectors(), 1)
	assert.Equal(t, 4, schema.Vectors()[0].Dims)

	// Cold partitions pick up the registered template when first written.
	_, err = st.BulkWrite(context.Background(), "products-archive-2020",
		[]store.Document{{ID: "p1", Source: map[string]any{"id": "p1"}}})
	require.NoError(t, err)
	cold, ok := st.Schema("products-archive-2020")
	require.True(t, ok)
	assert.Same(t, schema, cold)
}

func TestInit_AlreadyExists(t *testing.T) {
	st := memory.New()
	svc := New(st, collections(t), 0, zap.NewNop())

	_, err := svc.Init(context.Background(), "applications")
	require.NoError(t, err)
	res, err := svc.Init(context.Background(), "applications")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "Partition 'applications' already exists", res.Message)
}

func TestInit_UnknownCollection(t *testing.T) {
	svc := New(memory.New(), collections(t), 0, zap.NewNop())
	_, err := svc.Init(context.Background(), "orders")
	require.ErrorIs(t, err, domain.ErrUnknownCollection)
}

type recordingStore struct {
	exists    bool
	createErr error
	templates []string
}

func (r *recordingStore) Exists(context.Context, string) (bool, error) { return r.exists, nil }

func (r *recordingStore) CreatePartition(context.Context, string, *store.Schema) error {
	return r.createErr
}

func (r *recordingStore) CreatePartitionTemplate(_ context.Context, pattern string, _ *store.Schema) error {
	r.templates = append(r.templates, pattern)
	return nil
}

func TestInit_UnarchivedCollectionHasNoTemplate(t *testing.T) {
	st := &recordingStore{}
	_, err := New(st, collections(t), 0, zap.NewNop()).Init(context.Background(), "applications")
	require.NoError(t, err)
	assert.Empty(t, st.templates)

	_, err = New(st, collections(t), 0, zap.NewNop()).Init(context.Background(), "products")
	require.NoError(t, err)
	assert.Equal(t, []string{"products-archive-*"}, st.templates)
}

func TestInit_CreateRace(t *testing.T) {
	st := &recordingStore{createErr: &store.Error{Op: store.OpCreate, Err: store.ErrPartitionExists}}
	res, err := New(st, collections(t), 0, zap.NewNop()).Init(context.Background(), "products")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Empty(t, st.templates)
}

func TestInit_CreateFailure(t *testing.T) {
	st := &recordingStore{createErr: &store.Error{Op: store.OpCreate, Err: errors.New("unauthorized")}}
	_, err := New(st, collections(t), 0, zap.NewNop()).Init(context.Background(), "products")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestSchemas(t *testing.T) {
	_, err := ProductSchema(0)
	require.ErrorIs(t, err, store.ErrInvalidSchema)

	app := ApplicationSchema()
	assert.Contains(t, app.String(), "clients:nested{")
	assert.Contains(t, app.String(), "role:keyword")
	assert.Contains(t, app.String(), "channel:keyword_lowercase")

	legacy := LegacyApplicationSchema()
	assert.Contains(t, legacy.String(), "mainApplicant.spouse.email:keyword_lowercase")
	assert.Contains(t, legacy.String(), "spouse.clientId:keyword")
}

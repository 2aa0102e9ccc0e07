package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dossier/internal/domain/search/query"
	"github.com/kailas-cloud/dossier/internal/store"
)

const testDB = "dossier"

func listCollections(names ...string) bson.D {
	batch := make([]bson.D, len(names))
	for i, n := range names {
		batch[i] = bson.D{{Key: "name", Value: n}, {Key: "type", Value: "collection"}}
	}
	return mtest.CreateCursorResponse(0, testDB+".$cmd.listCollections", mtest.FirstBatch, batch...)
}

func commandNames(mt *mtest.T) []string {
	var out []string
	for _, e := range mt.GetAllStartedEvents() {
		out = append(out, e.CommandName)
	}
	return out
}

func TestReindex(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("copies after indexing the destination", func(mt *mtest.T) {
		s := newStore(mt.Client, testDB, zap.NewNop())
		mt.AddMockResponses(
			listCollections("products"),
			mtest.CreateCursorResponse(0, testDB+"."+templatesCollection, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, testDB+".products", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, testDB+".products", mtest.FirstBatch),
		)

		copied, err := s.Reindex(context.Background(), []string{"products"}, query.MatchAll{}, "products-archive-2023")
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, copied)
	})

	mt.Run("template failure copies nothing", func(mt *mtest.T) {
		s := newStore(mt.Client, testDB, zap.NewNop())
		mt.AddMockResponses(
			listCollections("products"),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    13,
				Message: "not authorized on dossier",
				Name:    "Unauthorized",
			}),
		)

		copied, err := s.Reindex(context.Background(), []string{"products"}, query.MatchAll{}, "products-archive-2023")
		require.Error(mt, err)
		assert.Zero(mt, copied)

		var se *store.Error
		require.True(mt, errors.As(err, &se))
		assert.Equal(mt, store.OpCreateTemplate, se.Op)
		assert.NotContains(mt, commandNames(mt), "aggregate", "nothing may be merged into the destination")
	})

	mt.Run("missing source", func(mt *mtest.T) {
		s := newStore(mt.Client, testDB, zap.NewNop())
		mt.AddMockResponses(listCollections())

		_, err := s.Reindex(context.Background(), []string{"products"}, query.MatchAll{}, "products-archive-2023")
		require.ErrorIs(mt, err, store.ErrPartitionNotFound)
	})
}

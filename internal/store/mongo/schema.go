package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/dossier/internal/store"
)

// schemaDocument is the persisted form of a partition template.
type schemaDocument struct {
	Fields []fieldDocument `bson:"fields"`
}

type fieldDocument struct {
	Name       string          `bson:"name"`
	Type       int             `bson:"type"`
	Fields     []fieldDocument `bson:"fields,omitempty"`
	Dims       int             `bson:"dims,omitempty"`
	Similarity string          `bson:"similarity,omitempty"`
}

func schemaDoc(s *store.Schema) schemaDocument {
	return schemaDocument{Fields: toFieldDocs(s.Fields)}
}

func toFieldDocs(fields []store.Field) []fieldDocument {
	out := make([]fieldDocument, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldDocument{
			Name:       f.Name,
			Type:       int(f.Type),
			Fields:     toFieldDocs(f.Fields),
			Dims:       f.Dims,
			Similarity: string(f.Similarity),
		})
	}
	return out
}

func (d schemaDocument) schema() *store.Schema {
	return &store.Schema{Fields: fromFieldDocs(d.Fields)}
}

func fromFieldDocs(docs []fieldDocument) []store.Field {
	out := make([]store.Field, 0, len(docs))
	for _, d := range docs {
		out = append(out, store.Field{
			Name:       d.Name,
			Type:       store.FieldType(d.Type),
			Fields:     fromFieldDocs(d.Fields),
			Dims:       d.Dims,
			Similarity: store.Similarity(d.Similarity),
		})
	}
	return out
}

// indexModels builds one ascending index per filterable field and a single
// text index over all text fields.
func indexModels(s *store.Schema) []mongo.IndexModel {
	var models []mongo.IndexModel
	text := bson.D{}
	var walk func(fields []store.Field, prefix string)
	walk = func(fields []store.Field, prefix string) {
		for _, f := range fields {
			path := prefix + f.Name
			switch f.Type {
			case store.FieldNested:
				walk(f.Fields, path+".")
			case store.FieldText:
				text = append(text, bson.E{Key: path, Value: "text"})
			case store.FieldVector:
			default:
				models = append(models, mongo.IndexModel{Keys: bson.D{{Key: path, Value: 1}}})
			}
		}
	}
	walk(s.Fields, "")
	if len(text) > 0 {
		models = append(models, mongo.IndexModel{Keys: text})
	}
	return models
}

// vectorIndexDefinition returns the Atlas vectorSearch definition for the
// schema's vector fields, or nil when it has none.
func vectorIndexDefinition(s *store.Schema) bson.M {
	vecs := s.Vectors()
	if len(vecs) == 0 {
		return nil
	}
	fields := bson.A{}
	for _, v := range vecs {
		sim := v.Similarity
		if sim == "" {
			sim = store.SimilarityCosine
		}
		fields = append(fields, bson.M{
			"type":          "vector",
			"path":          v.Name,
			"numDimensions": v.Dims,
			"similarity":    string(sim),
		})
	}
	return bson.M{"fields": fields}
}

package store

import (
	"errors"
	"strings"
	"testing"
)

func TestSchemaBuilder_Simple(t *testing.T) {
	s := NewSchema().
		Keyword("id", "category").
		KeywordLowercase("email").
		Date("createdAt").
		MustBuild()

	if len(s.Fields) != 4 {
		t.Fatalf("fields count = %d, want 4", len(s.Fields))
	}
	if s.Fields[1].Name != "category" || s.Fields[1].Type != FieldKeyword {
		t.Errorf("field[1] = %+v, want category keyword", s.Fields[1])
	}
	if s.Fields[2].Type != FieldKeywordLowercase {
		t.Errorf("field[2] type = %v, want keyword_lowercase", s.Fields[2].Type)
	}
}

func TestSchemaBuilder_Nested(t *testing.T) {
	s := NewSchema().
		Keyword("id").
		Nested("clients", func(b *SchemaBuilder) {
			b.KeywordLowercase("email").Keyword("role", "clientId")
		}).
		MustBuild()

	f := s.Fields[1]
	if f.Type != FieldNested {
		t.Fatalf("type = %v, want nested", f.Type)
	}
	if len(f.Fields) != 3 {
		t.Fatalf("nested fields = %d, want 3", len(f.Fields))
	}
	if got := s.String(); !strings.Contains(got, "clients:nested{email:keyword_lowercase role:keyword clientId:keyword}") {
		t.Errorf("String() = %q", got)
	}
}

func TestSchemaBuilder_Vector(t *testing.T) {
	s := NewSchema().Text("name").Vector("embedding", 384, SimilarityCosine).MustBuild()

	vecs := s.Vectors()
	if len(vecs) != 1 {
		t.Fatalf("vectors = %d, want 1", len(vecs))
	}
	if vecs[0].Dims != 384 || vecs[0].Similarity != SimilarityCosine {
		t.Errorf("vector = %+v", vecs[0])
	}
}

func TestSchemaBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    *SchemaBuilder
	}{
		{"empty", NewSchema()},
		{"duplicate", NewSchema().Keyword("id", "id")},
		{"zero dims", NewSchema().Vector("embedding", 0, SimilarityCosine)},
		{"empty nested", NewSchema().Nested("clients", func(*SchemaBuilder) {})},
		{"duplicate in nested", NewSchema().Nested("clients", func(b *SchemaBuilder) { b.Keyword("a", "a") })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			if !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("err = %v, want ErrInvalidSchema", err)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := Wrap(OpSearch, ErrPartitionNotFound)
	if !errors.Is(err, ErrPartitionNotFound) {
		t.Errorf("errors.Is failed for %v", err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Op != OpSearch {
		t.Errorf("errors.As = %+v", se)
	}
	if Wrap(OpSearch, nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

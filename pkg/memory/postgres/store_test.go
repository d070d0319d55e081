package postgres

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestVectorColumnDDL_BakesDimensions(t *testing.T) {
	t.Parallel()

	ddl := fmt.Sprintf(vectorColumnDDL, 1536)
	if !strings.Contains(ddl, "vector(1536)") {
		t.Errorf("DDL missing dimensioned column type:\n%s", ddl)
	}
	if !strings.Contains(ddl, "vector_cosine_ops") {
		t.Errorf("DDL missing cosine HNSW index:\n%s", ddl)
	}
}

func TestOptions_Apply(t *testing.T) {
	t.Parallel()

	s := &Store{retention: defaultRetention}
	WithRetention(24 * time.Hour)(s)
	if s.retention != 24*time.Hour {
		t.Errorf("retention = %v; want 24h", s.retention)
	}

	WithEmbeddings(nil, 768)(s)
	if s.dims != 768 {
		t.Errorf("dims = %d; want 768", s.dims)
	}
}

func TestDefaultRetention(t *testing.T) {
	t.Parallel()

	s := &Store{retention: defaultRetention}
	if s.retention != 90*24*time.Hour {
		t.Errorf("default retention = %v; want 90 days", s.retention)
	}
}

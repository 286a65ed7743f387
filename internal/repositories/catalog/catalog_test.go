package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCatalogLoadsEmbeddedAssignments(t *testing.T) {
	c := newTestCatalog(t)
	if c.Size() == 0 {
		t.Fatal("embedded catalog must not be empty")
	}
}

func TestCatalogFetch(t *testing.T) {
	c := newTestCatalog(t)

	assignment, err := c.Fetch(context.Background(), "go-fundamentals", models.SessionContext{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if assignment.AssignmentID != "go-fundamentals" {
		t.Errorf("assignment ID = %q", assignment.AssignmentID)
	}
	if len(assignment.Topics) == 0 || len(assignment.Questions) == 0 {
		t.Error("fallback assignment must carry topics and questions")
	}
	if assignment.TotalQuestions != len(assignment.Questions) {
		t.Errorf("totalQuestions = %d, questions = %d", assignment.TotalQuestions, len(assignment.Questions))
	}
	// Fallback content must be gradable without the remote service.
	if !assignment.HasFullAnswerKey() {
		t.Error("fallback assignment must carry a complete answer key")
	}
}

func TestCatalogFetchMiss(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Fetch(context.Background(), "no-such-assignment", models.SessionContext{})
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrNotFound", err)
	}
}

func TestCatalogHandsOutCopies(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	first, err := c.Fetch(ctx, "go-fundamentals", models.SessionContext{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	first.Title = "mutated"

	second, err := c.Fetch(ctx, "go-fundamentals", models.SessionContext{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if second.Title == "mutated" {
		t.Error("catalog entries must not be mutable through fetched copies")
	}
}

package catalog

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
)

//go:embed assignments/*.json
var assignmentFiles embed.FS

// Catalog is the embedded fallback content source: a fixed, versioned
// set of assignments used when the remote content service is
// unreachable. Read-only; looked up by exact assignmentId match.
type Catalog struct {
	assignments map[string]*models.Assignment
	logger      *slog.Logger
}

// New parses the embedded assignment files. A malformed file fails
// construction rather than surfacing later as a missing assignment.
func New(logger *slog.Logger) (*Catalog, error) {
	entries, err := fs.ReadDir(assignmentFiles, "assignments")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}

	assignments := make(map[string]*models.Assignment, len(entries))
	for _, entry := range entries {
		data, err := assignmentFiles.ReadFile("assignments/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read catalog file %s: %w", entry.Name(), err)
		}

		var assignment models.Assignment
		if err := json.Unmarshal(data, &assignment); err != nil {
			return nil, fmt.Errorf("parse catalog file %s: %w", entry.Name(), err)
		}
		if assignment.AssignmentID == "" {
			return nil, fmt.Errorf("catalog file %s has no assignmentId", entry.Name())
		}
		assignments[assignment.AssignmentID] = &assignment
	}

	logger.Info("fallback catalog loaded", "assignments", len(assignments))

	return &Catalog{assignments: assignments, logger: logger}, nil
}

// Fetch implements repositories.ContentSource. The session context is
// unused; the catalog is local data.
func (c *Catalog) Fetch(_ context.Context, assignmentID string, _ models.SessionContext) (*models.Assignment, error) {
	assignment, ok := c.assignments[assignmentID]
	if !ok {
		return nil, fmt.Errorf("assignment %q not in fallback catalog: %w", assignmentID, repositories.ErrNotFound)
	}

	// Hand out a copy so callers cannot mutate the catalog.
	clone := *assignment
	return &clone, nil
}

// Size returns the number of embedded assignments.
func (c *Catalog) Size() int {
	return len(c.assignments)
}

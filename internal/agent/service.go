package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/planforge/planforge/internal/packager"
	"github.com/planforge/planforge/internal/store"
	"github.com/planforge/planforge/internal/validate"
)

// Service drives a full generation run: validation, session bookkeeping,
// the pipeline, and packaging.
type Service struct {
	Pipeline *Pipeline
	Store    *store.Store
	Packager *packager.Packager
}

// Generate validates the idea, runs the pipeline, and packages the
// result. The returned session reflects the final state; on failure it is
// marked failed with the error recorded.
func (s *Service) Generate(ctx context.Context, idea string) (*store.Session, string, error) {
	idea = validate.SanitizeIdea(idea)
	if err := validate.Idea(idea); err != nil {
		return nil, "", fmt.Errorf("agent: invalid idea: %w", err)
	}

	sess, err := s.Store.CreateSession(idea)
	if err != nil {
		return nil, "", err
	}

	// Run on a per-call copy so concurrent Generates don't share a
	// Progress field and cross-wire phase updates between sessions.
	pipeline := *s.Pipeline
	configured := s.Pipeline.Progress
	pipeline.Progress = func(phase, detail string) {
		if err := s.Store.SetPhase(sess.ID, phase); err != nil {
			log.Printf("WARNING: agent: record phase %s: %v", phase, err)
		}
		if configured != nil {
			configured(phase, detail)
		}
	}

	docs, err := pipeline.Run(ctx, idea)
	if err != nil {
		s.fail(sess.ID, err)
		return sess, "", err
	}

	zipPath, err := s.Packager.Package(ctx, idea, docs)
	if err != nil {
		s.fail(sess.ID, err)
		return sess, "", err
	}

	if err := s.Store.CompleteSession(sess.ID, zipPath); err != nil {
		return sess, zipPath, err
	}
	done, err := s.Store.GetSession(sess.ID)
	if err != nil {
		return sess, zipPath, nil
	}
	return done, zipPath, nil
}

func (s *Service) fail(id string, cause error) {
	if err := s.Store.FailSession(id, cause.Error()); err != nil {
		log.Printf("WARNING: agent: record failure for session %s: %v", id, err)
	}
}

package service

import (
	"context"
	"errors"
	"strings"

	"restodesk/backend/internal/domain"
	"restodesk/backend/internal/store"
)

// SaveDraft overwrites the stored draft for form.
func (s *Service) SaveDraft(ctx context.Context, form string, snapshot map[string]any) (domain.FormDraft, error) {
	form = strings.TrimSpace(form)
	if form == "" {
		return domain.FormDraft{}, invalid("form name is required")
	}
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	draft := domain.FormDraft{Form: form, Snapshot: snapshot, SavedAt: s.now()}
	if err := save(ctx, s, s.drafts, form, draft); err != nil {
		return domain.FormDraft{}, err
	}
	s.metrics.DraftSaved()
	return draft, nil
}

func (s *Service) LoadDraft(ctx context.Context, form string) (domain.FormDraft, error) {
	return load(ctx, s, s.drafts, form)
}

// DiscardDraft drops the draft for form. A missing draft is not an error.
func (s *Service) DiscardDraft(ctx context.Context, form string) error {
	if err := s.drafts.Remove(ctx, form); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.observe(err)
		return err
	}
	return nil
}

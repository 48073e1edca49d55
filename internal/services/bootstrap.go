package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/store"
)

// Identity is what the identity provider knows about a freshly
// authenticated user, consumed at document-bootstrap time only.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
	Provider    string
}

// BootstrapService ensures a profile document exists for each login.
type BootstrapService struct {
	store store.ProfileStore
	log   *zap.Logger
}

func NewBootstrapService(st store.ProfileStore, log *zap.Logger) *BootstrapService {
	return &BootstrapService{store: st, log: log}
}

// EnsureProfile makes at most one write per login event:
//   - no document: create one with defaults and provider data;
//   - document missing the goals structure: patch in the empty weekdays;
//   - complete document: zero writes.
//
// Store errors propagate to the caller, which surfaces them as an
// authentication failure. No retries here.
func (s *BootstrapService) EnsureProfile(ctx context.Context, ident Identity) (*models.Profile, error) {
	prof, err := s.store.Get(ctx, ident.UID)
	if errors.Is(err, store.ErrNotFound) {
		prof = models.DefaultProfile(
			ident.UID,
			models.DisplayNameFor(ident.DisplayName, ident.Email),
			ident.Email,
			ident.PhotoURL,
		)
		prof.Provider = ident.Provider
		if err := s.store.Create(ctx, prof); err != nil {
			return nil, err
		}
		s.log.Info("created profile", zap.String("uid", ident.UID))
		return prof, nil
	}
	if err != nil {
		return nil, err
	}

	if prof.Goals == nil {
		goals := models.DefaultGoals()
		if err := s.store.PatchGoals(ctx, ident.UID, goals); err != nil {
			return nil, err
		}
		prof.Goals = goals
		s.log.Info("patched missing goals structure", zap.String("uid", ident.UID))
	}
	return prof, nil
}

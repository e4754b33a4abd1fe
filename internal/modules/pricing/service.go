package pricing

import (
	"context"
	"errors"

	"phlebo/internal/types"
)

// RateSource is implemented by *Store.
type RateSource interface {
	ActiveRate(ctx context.Context) (Rate, error)
}

type Service struct {
	store RateSource
}

func NewService(store RateSource) *Service {
	return &Service{store: store}
}

// Estimate returns the fare for a straight-line distance using the active
// rate, falling back to DefaultRate when none is configured.
func (s *Service) Estimate(ctx context.Context, distanceKm float64) (types.Money, error) {
	rate := DefaultRate
	if s.store != nil {
		r, err := s.store.ActiveRate(ctx)
		switch {
		case err == nil:
			rate = r
		case errors.Is(err, ErrNoRate):
			// fall through to the default
		default:
			return types.Money{}, err
		}
	}
	return rate.Fare(distanceKm), nil
}

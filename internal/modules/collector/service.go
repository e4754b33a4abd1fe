package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"phlebo/internal/types"
)

var ErrBadRequest = errors.New("bad request")

// Storage is implemented by *Store; kept as an interface so tests can run
// without a database.
type Storage interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id types.ID) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	Deactivate(ctx context.Context, id types.ID) error
	EligibleByPincode(ctx context.Context, pincode string) ([]Profile, error)
}

type Service struct {
	store Storage
}

func NewService(store Storage) *Service {
	return &Service{store: store}
}

type CreateCommand struct {
	Name            string
	Pincodes        []string
	StartHour       int
	EndHour         int
	CapacityPerHour int
}

type UpdateCommand struct {
	ID              types.ID
	Name            string
	Pincodes        []string
	StartHour       int
	EndHour         int
	CapacityPerHour int
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	pins, err := validateProfileFields(cmd.Name, cmd.Pincodes, cmd.StartHour, cmd.EndHour, cmd.CapacityPerHour)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	p := &Profile{
		ID:              types.ID(uuid.NewString()),
		Name:            cmd.Name,
		Pincodes:        pins,
		StartHour:       cmd.StartHour,
		EndHour:         cmd.EndHour,
		CapacityPerHour: cmd.CapacityPerHour,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (s *Service) Update(ctx context.Context, cmd UpdateCommand) error {
	pins, err := validateProfileFields(cmd.Name, cmd.Pincodes, cmd.StartHour, cmd.EndHour, cmd.CapacityPerHour)
	if err != nil {
		return err
	}
	p := &Profile{
		ID:              cmd.ID,
		Name:            cmd.Name,
		Pincodes:        pins,
		StartHour:       cmd.StartHour,
		EndHour:         cmd.EndHour,
		CapacityPerHour: cmd.CapacityPerHour,
	}
	return s.store.Update(ctx, p)
}

func (s *Service) Deactivate(ctx context.Context, id types.ID) error {
	return s.store.Deactivate(ctx, id)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Profile, error) {
	return s.store.Get(ctx, id)
}

// EligibleByPincode is the service-area index: every active collector serving
// the (normalized) pincode. An empty result is valid, not an error.
func (s *Service) EligibleByPincode(ctx context.Context, pincode string) ([]Profile, error) {
	return s.store.EligibleByPincode(ctx, NormalizePincode(pincode))
}

func validateProfileFields(name string, pincodes []string, startHour, endHour, capacity int) ([]string, error) {
	if name == "" {
		return nil, ErrBadRequest
	}
	if capacity < 1 {
		return nil, ErrBadRequest
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, ErrBadRequest
	}
	if len(pincodes) == 0 {
		return nil, ErrBadRequest
	}
	pins := make([]string, 0, len(pincodes))
	seen := make(map[string]bool, len(pincodes))
	for _, raw := range pincodes {
		pin := NormalizePincode(raw)
		if pin == "" {
			return nil, ErrBadRequest
		}
		if seen[pin] {
			continue
		}
		seen[pin] = true
		pins = append(pins, pin)
	}
	return pins, nil
}

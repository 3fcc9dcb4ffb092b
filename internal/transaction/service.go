package transaction

import "time"

// Service provides read access to the sales ledger. Writes happen through
// the gateway at checkout, never here.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() ([]Transaction, error) {
	return s.repo.List()
}

func (s *Service) ListByUser(userID string) ([]Transaction, error) {
	return s.repo.ListByUser(userID)
}

func (s *Service) ListBetween(from, to time.Time) ([]Transaction, error) {
	return s.repo.ListBetween(from, to)
}

func (s *Service) ListByIDs(ids []string) ([]Transaction, error) {
	return s.repo.ListByIDs(ids)
}

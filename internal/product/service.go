package product

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() ([]Product, error) {
	return s.repo.List()
}

func (s *Service) GetByID(id string) (Product, error) {
	return s.repo.GetByID(id)
}

// GetByBarcode resolves a scanned barcode to its catalog product.
func (s *Service) GetByBarcode(code string) (Product, error) {
	return s.repo.GetByBarcode(code)
}

// ResetProducts replaces all products with the given list (used for dev / seeding).
func (s *Service) ResetProducts(products []Product) error {
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return s.repo.Reset(products)
}

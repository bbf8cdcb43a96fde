package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"herbstore/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is a process-local catalog used by tests and
// local tooling.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]models.Product
}

// NewMemoryProductRepository returns an empty catalog.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[string]models.Product)}
}

func (r *MemoryProductRepository) List(filter ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.InStock && p.Stock <= 0 {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryProductRepository) Find(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (r *MemoryProductRepository) Save(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	r.products[product.ID] = *product
	return nil
}

func (r *MemoryProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}
	r.products[product.ID] = *product
	return nil
}

func (r *MemoryProductRepository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

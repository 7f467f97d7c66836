package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/sale"
	"salonpos/backend/internal/store"
)

const uncategorized = "Uncategorized"

// Catalog returns the categories and services snapshot, served from the cache
// when possible.
func (s *Service) Catalog(ctx context.Context) (domain.Catalog, error) {
	cached, ok, err := s.cache.Get(ctx)
	if err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
	}
	if ok && cached != nil {
		return *cached, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("list categories: %w", err)
	}
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("list services: %w", err)
	}

	catalog := domain.Catalog{Categories: categories, Services: services}
	if err := s.cache.Set(ctx, &catalog, s.catalogTTL); err != nil {
		log.Printf("[service] WARN: catalog cache write failed: %v", err)
	}
	return catalog, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Categories, nil
}

func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Services, nil
}

// GroupedServices files services under their category name, categories in
// alphabetical order.
func (s *Service) GroupedServices(ctx context.Context) ([]domain.ServiceGroup, error) {
	services, err := s.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	groups := make([]domain.ServiceGroup, 0)
	for _, svc := range services {
		name := svc.CategoryName
		if name == "" {
			name = uncategorized
		}
		pos, ok := index[name]
		if !ok {
			pos = len(groups)
			index[name] = pos
			groups = append(groups, domain.ServiceGroup{Category: name, Services: []domain.Service{}})
		}
		groups[pos].Services = append(groups[pos].Services, svc)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Category) < strings.ToLower(groups[j].Category)
	})
	return groups, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, invalidf("category name is required")
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: name, CreatedAt: s.now().UTC()})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Category{}, conflictf("category %q already exists", name)
		}
		return domain.Category{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "category_create", "category", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidf("category id is required")
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return conflictf("category still has services")
		}
		return err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "category_delete", "category", id, "")
	return nil
}

func (s *Service) CreateService(ctx context.Context, req domain.ServiceCreateRequest) (domain.Service, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Service{}, err
	}

	svc := domain.Service{
		Name:       strings.TrimSpace(req.Name),
		Price:      req.Price.Round(2),
		CategoryID: strings.TrimSpace(req.CategoryID),
		CreatedAt:  s.now().UTC(),
	}
	if err := validateServiceInput(svc); err != nil {
		return domain.Service{}, err
	}

	created, err := s.repo.CreateService(ctx, svc)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return domain.Service{}, invalidf("category %s does not exist", svc.CategoryID)
		}
		return domain.Service{}, err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "service_create", "service", created.ID, fmt.Sprintf("name=%s,price=%s", created.Name, created.Price.StringFixed(2)))
	return *created, nil
}

func (s *Service) UpdateService(ctx context.Context, id string, req domain.ServiceUpdateRequest) (domain.Service, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Service{}, err
	}

	existing, err := s.repo.GetService(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Service{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		updated.Price = req.Price.Round(2)
	}
	if req.CategoryID != nil {
		updated.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	if err := validateServiceInput(updated); err != nil {
		return domain.Service{}, err
	}

	saved, err := s.repo.UpdateService(ctx, updated)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return domain.Service{}, invalidf("category %s does not exist", updated.CategoryID)
		}
		return domain.Service{}, err
	}

	s.invalidateCatalog(ctx)
	if !existing.Price.Equal(saved.Price) {
		s.logAudit(ctx, "service_price_update", "service", saved.ID, fmt.Sprintf("old=%s,new=%s", existing.Price.StringFixed(2), saved.Price.StringFixed(2)))
	} else {
		s.logAudit(ctx, "service_update", "service", saved.ID, "name="+saved.Name)
	}
	return *saved, nil
}

func (s *Service) DeleteService(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidf("service id is required")
	}

	if err := s.repo.DeleteService(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return conflictf("service has recorded sales")
		}
		return err
	}

	s.invalidateCatalog(ctx)
	s.logAudit(ctx, "service_delete", "service", id, "")
	return nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
}

func validateServiceInput(svc domain.Service) error {
	if svc.Name == "" {
		return invalidf("service name is required")
	}
	if svc.CategoryID == "" {
		return invalidf("category is required")
	}
	if svc.Price.IsNegative() {
		return invalidf("price must not be negative")
	}
	if !sale.WithinLimit(svc.Price) {
		return invalidf("price must be less than %s", sale.MaxAmount.String())
	}
	return nil
}

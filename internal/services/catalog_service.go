package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cars2u/pos/internal/domain"
	"github.com/cars2u/pos/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates a malformed request.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogItemNotFound indicates no such item exists.
	ErrCatalogItemNotFound = errors.New("catalog service: item not found")
	// ErrCatalogUnavailable indicates the backing store failed.
	ErrCatalogUnavailable = errors.New("catalog service: storage unavailable")
)

// CatalogServiceDeps wires the catalog service dependencies.
type CatalogServiceDeps struct {
	Catalog  repositories.CatalogRepository
	PageSize int
}

type catalogService struct {
	catalog  repositories.CatalogRepository
	pageSize int
}

// NewCatalogService validates dependencies and constructs a CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	if deps.PageSize <= 0 {
		return nil, errors.New("catalog service: page size must be positive")
	}
	return &catalogService{catalog: deps.Catalog, pageSize: deps.PageSize}, nil
}

func (s *catalogService) Item(ctx context.Context, itemID string) (domain.CatalogItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: item id is required", ErrCatalogInvalidInput)
	}
	item, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		return domain.CatalogItem{}, s.translateRepoError(err)
	}
	return item, nil
}

// Browse returns one page of the for-sale listing. Pages are numbered from 1.
func (s *catalogService) Browse(ctx context.Context, page int) (domain.Page[domain.CatalogItem], error) {
	offset, err := s.pageOffset(page)
	if err != nil {
		return domain.Page[domain.CatalogItem]{}, err
	}
	items, total, err := s.catalog.ListForSale(ctx, offset, s.pageSize)
	if err != nil {
		return domain.Page[domain.CatalogItem]{}, s.translateRepoError(err)
	}
	return domain.Page[domain.CatalogItem]{Items: items, Page: page, PageSize: s.pageSize, Total: total}, nil
}

// Search returns one page of for-sale items whose description matches term.
func (s *catalogService) Search(ctx context.Context, term string, page int) (domain.Page[domain.CatalogItem], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return domain.Page[domain.CatalogItem]{}, fmt.Errorf("%w: search term is required", ErrCatalogInvalidInput)
	}
	offset, err := s.pageOffset(page)
	if err != nil {
		return domain.Page[domain.CatalogItem]{}, err
	}
	items, total, err := s.catalog.Search(ctx, term, offset, s.pageSize)
	if err != nil {
		return domain.Page[domain.CatalogItem]{}, s.translateRepoError(err)
	}
	return domain.Page[domain.CatalogItem]{Items: items, Page: page, PageSize: s.pageSize, Total: total}, nil
}

func (s *catalogService) pageOffset(page int) (int, error) {
	if page < 1 {
		return 0, fmt.Errorf("%w: page numbers start at 1", ErrCatalogInvalidInput)
	}
	return (page - 1) * s.pageSize, nil
}

func (s *catalogService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogItemNotFound
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
}

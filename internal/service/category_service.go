package service

import (
	"context"
	"strings"

	"hoteldesk/internal/domain"
	"hoteldesk/internal/models"

	"github.com/rs/zerolog"
)

type CategoryService struct {
	repo   domain.CategoryRepository
	logger *zerolog.Logger
}

func NewCategoryService(repo domain.CategoryRepository, logger *zerolog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

func validateCategory(c *models.RoomCategory) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("name", "is required")
	}
	if c.Status == "" {
		c.Status = models.CategoryActive
	}
	if !models.ValidCategoryStatus(c.Status) {
		return invalid("status", "unknown status "+c.Status)
	}
	return nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, c *models.RoomCategory) error {
	if err := validateCategory(c); err != nil {
		return err
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return err
	}
	s.logger.Info().Int64("category_id", c.ID).Str("name", c.Name).Msg("Room category created")
	return nil
}

type CategoryPatch struct {
	Name        *string
	Description *string
	Status      *string
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, p CategoryPatch) (*models.RoomCategory, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Status != nil {
		c.Status = *p.Status
		if c.Status == "" {
			return nil, invalid("status", "is required")
		}
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory fails with database.ErrInUse while live bookings reference the category.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("category_id", id).Msg("Room category deleted")
	return nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*models.RoomCategory, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]*models.RoomCategory, error) {
	return s.repo.ListCategories(ctx)
}

package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tuina_clinic_backend/internal/membership"
	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"
	"tuina_clinic_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

var (
	ErrMembershipTypeNotFound   = errors.New("membership type not found")
	ErrMembershipTypeValidation = errors.New("membership type validation error")
	ErrMembershipTypeExists     = errors.New("membership type with this name already exists")
	ErrMembershipTypeInUse      = errors.New("membership type is referenced by issued cards")
)

// MembershipTypeRequest is the catalog form for both create and update.
type MembershipTypeRequest struct {
	Name         string       `json:"name" binding:"required"`
	Category     string       `json:"category" binding:"required"`
	Price        json.Number  `json:"price" binding:"required"`
	ValueAmount  *json.Number `json:"value_amount"`
	ServiceCount int          `json:"service_count"`
	ValidityDays int          `json:"validity_days"`
	Description  *string      `json:"description"`
	IsActive     *bool        `json:"is_active"`
}

// MembershipTypeService manages the card catalog.
type MembershipTypeService interface {
	CreateMembershipType(req MembershipTypeRequest) (*models.MembershipType, error)
	GetMembershipTypeByID(id int64) (*models.MembershipType, error)
	GetMembershipTypes(activeOnly bool) ([]models.MembershipType, error)
	UpdateMembershipType(id int64, req MembershipTypeRequest) (*models.MembershipType, error)
	DeleteMembershipType(id int64) error
}

type membershipTypeService struct {
	repo repositories.MembershipTypeRepository
	db   *sql.DB
}

// NewMembershipTypeService creates a new instance of MembershipTypeService.
func NewMembershipTypeService(repo repositories.MembershipTypeRepository, db *sql.DB) MembershipTypeService {
	return &membershipTypeService{repo: repo, db: db}
}

// toModel validates the request against the category's required fields.
func (req MembershipTypeRequest) toModel() (*models.MembershipType, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrMembershipTypeValidation)
	}
	category, err := membership.ParseCardType(req.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMembershipTypeValidation, err)
	}
	price, err := membership.ParseAmount(req.Price.String())
	if err != nil {
		return nil, fmt.Errorf("%w: price: %v", ErrMembershipTypeValidation, err)
	}
	valueAmount := decimal.Zero
	if req.ValueAmount != nil && req.ValueAmount.String() != "" {
		if valueAmount, err = membership.ParseAmount(req.ValueAmount.String()); err != nil {
			return nil, fmt.Errorf("%w: value_amount: %v", ErrMembershipTypeValidation, err)
		}
	}
	if req.ServiceCount < 0 || req.ValidityDays < 0 {
		return nil, fmt.Errorf("%w: service_count and validity_days cannot be negative", ErrMembershipTypeValidation)
	}

	required, _ := membership.RequiredFields(category)
	switch {
	case required.Has(membership.FieldServiceCount) && req.ServiceCount == 0:
		return nil, fmt.Errorf("%w: %s cards need a service_count", ErrMembershipTypeValidation, category)
	case required.Has(membership.FieldPeriodValue) && req.ValidityDays == 0:
		return nil, fmt.Errorf("%w: %s cards need validity_days", ErrMembershipTypeValidation, category)
	case required.Has(membership.FieldInitialAmount) && !valueAmount.IsPositive():
		return nil, fmt.Errorf("%w: value cards need a positive value_amount", ErrMembershipTypeValidation)
	}

	mt := &models.MembershipType{
		Name:         name,
		Category:     category,
		Price:        price,
		ValueAmount:  valueAmount,
		ServiceCount: req.ServiceCount,
		ValidityDays: req.ValidityDays,
		Description:  utils.NewNullString(utils.DerefString(req.Description)),
		IsActive:     true,
	}
	if req.IsActive != nil {
		mt.IsActive = *req.IsActive
	}
	return mt, nil
}

func (s *membershipTypeService) CreateMembershipType(req MembershipTypeRequest) (*models.MembershipType, error) {
	mt, err := req.toModel()
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.CreateMembershipType(s.db, mt); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrMembershipTypeExists
		}
		return nil, fmt.Errorf("failed to create membership type: %w", err)
	}
	return mt, nil
}

func (s *membershipTypeService) GetMembershipTypeByID(id int64) (*models.MembershipType, error) {
	mt, err := s.repo.GetMembershipTypeByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrMembershipTypeNotFound
		}
		return nil, fmt.Errorf("failed to get membership type: %w", err)
	}
	return mt, nil
}

func (s *membershipTypeService) GetMembershipTypes(activeOnly bool) ([]models.MembershipType, error) {
	types, err := s.repo.GetMembershipTypes(activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list membership types: %w", err)
	}
	return types, nil
}

func (s *membershipTypeService) UpdateMembershipType(id int64, req MembershipTypeRequest) (*models.MembershipType, error) {
	existing, err := s.GetMembershipTypeByID(id)
	if err != nil {
		return nil, err
	}
	mt, err := req.toModel()
	if err != nil {
		return nil, err
	}
	mt.ID = existing.ID
	mt.CreatedAt = existing.CreatedAt
	if req.IsActive == nil {
		mt.IsActive = existing.IsActive
	}

	if err := s.repo.UpdateMembershipType(s.db, mt); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrMembershipTypeNotFound
		case errors.Is(err, repositories.ErrDuplicateKey):
			return nil, ErrMembershipTypeExists
		}
		return nil, fmt.Errorf("failed to update membership type: %w", err)
	}
	return mt, nil
}

func (s *membershipTypeService) DeleteMembershipType(id int64) error {
	if err := s.repo.DeleteMembershipType(s.db, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return ErrMembershipTypeNotFound
		case errors.Is(err, repositories.ErrForeignKey):
			return ErrMembershipTypeInUse
		}
		return fmt.Errorf("failed to delete membership type: %w", err)
	}
	return nil
}

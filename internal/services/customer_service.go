package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuina_clinic_backend/internal/membership"
	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"
	"tuina_clinic_backend/pkg/utils"
)

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrCustomerValidation = errors.New("customer data validation error")
	ErrCustomerPhoneTaken = errors.New("guardian phone number is already registered")
	ErrCustomerInUse      = errors.New("customer cannot be deleted as they have cards or service records")
)

// CreateCustomerRequest DTO
type CreateCustomerRequest struct {
	FullName          string  `json:"full_name" binding:"required"`
	Gender            *string `json:"gender"`
	DateOfBirth       *string `json:"date_of_birth"`
	GuardianName      *string `json:"guardian_name"`
	GuardianPhone     *string `json:"guardian_phone"`
	ConstitutionNotes *string `json:"constitution_notes"`
	Notes             *string `json:"notes"`
}

// UpdateCustomerRequest DTO. Nil fields are left unchanged.
type UpdateCustomerRequest struct {
	FullName          *string `json:"full_name"`
	Gender            *string `json:"gender"`
	DateOfBirth       *string `json:"date_of_birth"`
	GuardianName      *string `json:"guardian_name"`
	GuardianPhone     *string `json:"guardian_phone"`
	ConstitutionNotes *string `json:"constitution_notes"`
	Notes             *string `json:"notes"`
}

// CustomerService manages customer records and their derived membership status.
type CustomerService interface {
	CreateCustomer(req CreateCustomerRequest) (*models.Customer, error)
	GetCustomerByID(id int64) (*models.Customer, error)
	GetCustomers(filters models.CustomerFilters) ([]models.Customer, int, error)
	UpdateCustomer(id int64, req UpdateCustomerRequest) (*models.Customer, error)
	DeleteCustomer(id int64) error
}

type customerService struct {
	customerRepo repositories.CustomerRepository
	cardRepo     repositories.MembershipRepository
	db           *sql.DB
	now          Clock
}

// NewCustomerService creates a new instance of CustomerService.
func NewCustomerService(customerRepo repositories.CustomerRepository, cardRepo repositories.MembershipRepository, db *sql.DB, now Clock) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		cardRepo:     cardRepo,
		db:           db,
		now:          now,
	}
}

var validGenders = map[string]bool{"male": true, "female": true}

// ageAt returns whole years between birth and now.
func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

func (s *customerService) validateBirthDate(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	now := s.now()
	dob, err := parseDate(strings.TrimSpace(*raw), now.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_birth: %v", ErrCustomerValidation, err)
	}
	if dob.After(now) {
		return nil, fmt.Errorf("%w: date_of_birth cannot be in the future", ErrCustomerValidation)
	}
	formatted := dob.Format(dateLayout)
	return &formatted, nil
}

func validateGender(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	g := strings.ToLower(strings.TrimSpace(*raw))
	if !validGenders[g] {
		return nil, fmt.Errorf("%w: gender must be 'male' or 'female'", ErrCustomerValidation)
	}
	return &g, nil
}

func validateGuardianPhone(raw *string) (*string, error) {
	phone := utils.NewNullString(utils.DerefString(raw))
	if phone != nil && !utils.IsValidPhone(*phone) {
		return nil, fmt.Errorf("%w: invalid guardian phone number", ErrCustomerValidation)
	}
	return phone, nil
}

// decorate fills the derived fields of a customer from its cards.
func (s *customerService) decorate(customer *models.Customer, cards []models.MembershipCard, now time.Time) {
	customer.MembershipStatus = membership.Evaluate(cards, now).Aggregate
	customer.Age = nil
	if customer.DateOfBirth == nil {
		return
	}
	if dob, err := parseDate(*customer.DateOfBirth, now.Location()); err == nil {
		age := ageAt(dob, now)
		customer.Age = &age
	}
}

func (s *customerService) CreateCustomer(req CreateCustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name cannot be empty", ErrCustomerValidation)
	}
	dob, err := s.validateBirthDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	gender, err := validateGender(req.Gender)
	if err != nil {
		return nil, err
	}
	phone, err := validateGuardianPhone(req.GuardianPhone)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		FullName:          name,
		Gender:            gender,
		DateOfBirth:       dob,
		GuardianName:      utils.NewNullString(utils.DerefString(req.GuardianName)),
		GuardianPhone:     phone,
		ConstitutionNotes: utils.NewNullString(utils.DerefString(req.ConstitutionNotes)),
		Notes:             utils.NewNullString(utils.DerefString(req.Notes)),
	}

	if _, err := s.customerRepo.CreateCustomer(s.db, customer); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrCustomerPhoneTaken
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.decorate(customer, nil, s.now())
	return customer, nil
}

func (s *customerService) GetCustomerByID(id int64) (*models.Customer, error) {
	customer, err := s.customerRepo.GetCustomerByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer by ID: %w", err)
	}
	cards, err := s.cardRepo.GetCardsByCustomerID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards of customer %d: %w", id, err)
	}
	s.decorate(customer, cards, s.now())
	return customer, nil
}

func (s *customerService) GetCustomers(filters models.CustomerFilters) ([]models.Customer, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}

	customers, total, err := s.customerRepo.GetCustomers(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get customers: %w", err)
	}
	if len(customers) == 0 {
		return customers, total, nil
	}

	ids := make([]int64, 0, len(customers))
	for _, c := range customers {
		ids = append(ids, c.ID)
	}
	cardsByCustomer, err := s.cardRepo.GetCardsByCustomerIDs(ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load cards of customers: %w", err)
	}

	now := s.now()
	for i := range customers {
		s.decorate(&customers[i], cardsByCustomer[customers[i].ID], now)
	}
	return customers, total, nil
}

func (s *customerService) UpdateCustomer(id int64, req UpdateCustomerRequest) (*models.Customer, error) {
	customer, err := s.customerRepo.GetCustomerByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer for update: %w", err)
	}

	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty if provided", ErrCustomerValidation)
		}
		customer.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Gender != nil {
		if customer.Gender, err = validateGender(req.Gender); err != nil {
			return nil, err
		}
	}
	if req.DateOfBirth != nil {
		if customer.DateOfBirth, err = s.validateBirthDate(req.DateOfBirth); err != nil {
			return nil, err
		}
	}
	if req.GuardianName != nil {
		customer.GuardianName = utils.NewNullString(*req.GuardianName)
	}
	if req.GuardianPhone != nil {
		if customer.GuardianPhone, err = validateGuardianPhone(req.GuardianPhone); err != nil {
			return nil, err
		}
	}
	if req.ConstitutionNotes != nil {
		customer.ConstitutionNotes = utils.NewNullString(*req.ConstitutionNotes)
	}
	if req.Notes != nil {
		customer.Notes = utils.NewNullString(*req.Notes)
	}

	if err := s.customerRepo.UpdateCustomer(s.db, customer); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrCustomerPhoneTaken
		}
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return s.GetCustomerByID(id)
}

func (s *customerService) DeleteCustomer(id int64) error {
	if err := s.customerRepo.DeleteCustomer(s.db, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCustomerNotFound
		}
		if errors.Is(err, repositories.ErrForeignKey) {
			return ErrCustomerInUse
		}
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

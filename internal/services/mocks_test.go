package services

import (
	"time"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockCustomerRepo struct{ mock.Mock }

func (m *mockCustomerRepo) CreateCustomer(executor repositories.SQLExecutor, customer *models.Customer) (int64, error) {
	args := m.Called(customer)
	customer.ID = args.Get(0).(int64)
	return customer.ID, args.Error(1)
}

func (m *mockCustomerRepo) GetCustomerByID(id int64) (*models.Customer, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerRepo) GetCustomers(filters models.CustomerFilters) ([]models.Customer, int, error) {
	args := m.Called(filters)
	c, _ := args.Get(0).([]models.Customer)
	return c, args.Int(1), args.Error(2)
}

func (m *mockCustomerRepo) UpdateCustomer(executor repositories.SQLExecutor, customer *models.Customer) error {
	return m.Called(customer).Error(0)
}

func (m *mockCustomerRepo) DeleteCustomer(executor repositories.SQLExecutor, id int64) error {
	return m.Called(id).Error(0)
}

type mockCardRepo struct{ mock.Mock }

func (m *mockCardRepo) CreateCard(executor repositories.SQLExecutor, card *models.MembershipCard) (int64, error) {
	args := m.Called(card)
	card.ID = args.Get(0).(int64)
	return card.ID, args.Error(1)
}

func (m *mockCardRepo) GetCardByID(id int64) (*models.MembershipCard, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.MembershipCard)
	return c, args.Error(1)
}

func (m *mockCardRepo) LockCard(executor repositories.SQLExecutor, id int64) (*models.MembershipCard, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.MembershipCard)
	return c, args.Error(1)
}

func (m *mockCardRepo) GetCardsByCustomerID(customerID int64) ([]models.MembershipCard, error) {
	args := m.Called(customerID)
	c, _ := args.Get(0).([]models.MembershipCard)
	return c, args.Error(1)
}

func (m *mockCardRepo) GetCardsByCustomerIDs(customerIDs []int64) (map[int64][]models.MembershipCard, error) {
	args := m.Called(customerIDs)
	c, _ := args.Get(0).(map[int64][]models.MembershipCard)
	return c, args.Error(1)
}

func (m *mockCardRepo) GetCards(filters models.MembershipFilters) ([]models.MembershipCard, int, error) {
	args := m.Called(filters)
	c, _ := args.Get(0).([]models.MembershipCard)
	return c, args.Int(1), args.Error(2)
}

func (m *mockCardRepo) UpdateCardStatus(executor repositories.SQLExecutor, id int64, status models.CardStatus, reason *string) error {
	return m.Called(id, status, reason).Error(0)
}

func (m *mockCardRepo) ConsumeCard(executor repositories.SQLExecutor, id int64, amount decimal.Decimal, visits int, today time.Time) error {
	return m.Called(id, amount.StringFixed(2), visits).Error(0)
}

func (m *mockCardRepo) RefundCard(executor repositories.SQLExecutor, id int64, amount decimal.Decimal, visits int) error {
	return m.Called(id, amount.StringFixed(2), visits).Error(0)
}

func (m *mockCardRepo) GetActiveCardsExpiringBetween(from, to time.Time) ([]models.MembershipCard, error) {
	args := m.Called(from, to)
	c, _ := args.Get(0).([]models.MembershipCard)
	return c, args.Error(1)
}

func (m *mockCardRepo) GetActiveCardsExpiredBefore(day time.Time) ([]models.MembershipCard, error) {
	args := m.Called(day)
	c, _ := args.Get(0).([]models.MembershipCard)
	return c, args.Error(1)
}

type mockTypeRepo struct{ mock.Mock }

func (m *mockTypeRepo) CreateMembershipType(executor repositories.SQLExecutor, mt *models.MembershipType) (int64, error) {
	args := m.Called(mt)
	mt.ID = args.Get(0).(int64)
	return mt.ID, args.Error(1)
}

func (m *mockTypeRepo) GetMembershipTypeByID(id int64) (*models.MembershipType, error) {
	args := m.Called(id)
	t, _ := args.Get(0).(*models.MembershipType)
	return t, args.Error(1)
}

func (m *mockTypeRepo) GetMembershipTypes(activeOnly bool) ([]models.MembershipType, error) {
	args := m.Called(activeOnly)
	t, _ := args.Get(0).([]models.MembershipType)
	return t, args.Error(1)
}

func (m *mockTypeRepo) UpdateMembershipType(executor repositories.SQLExecutor, mt *models.MembershipType) error {
	return m.Called(mt).Error(0)
}

func (m *mockTypeRepo) DeleteMembershipType(executor repositories.SQLExecutor, id int64) error {
	return m.Called(id).Error(0)
}

type mockRecordRepo struct{ mock.Mock }

func (m *mockRecordRepo) CreateServiceRecord(executor repositories.SQLExecutor, record *models.ServiceRecord) (int64, error) {
	args := m.Called(record)
	record.ID = args.Get(0).(int64)
	return record.ID, args.Error(1)
}

func (m *mockRecordRepo) GetServiceRecordByID(id int64) (*models.ServiceRecord, error) {
	args := m.Called(id)
	r, _ := args.Get(0).(*models.ServiceRecord)
	return r, args.Error(1)
}

func (m *mockRecordRepo) LockServiceRecord(executor repositories.SQLExecutor, id int64) (*models.ServiceRecord, error) {
	args := m.Called(id)
	r, _ := args.Get(0).(*models.ServiceRecord)
	return r, args.Error(1)
}

func (m *mockRecordRepo) GetServiceRecords(filters models.ServiceRecordFilters) ([]models.ServiceRecord, int, error) {
	args := m.Called(filters)
	r, _ := args.Get(0).([]models.ServiceRecord)
	return r, args.Int(1), args.Error(2)
}

func (m *mockRecordRepo) UpdateServiceRecord(executor repositories.SQLExecutor, record *models.ServiceRecord) error {
	return m.Called(record).Error(0)
}

func (m *mockRecordRepo) DeleteServiceRecord(executor repositories.SQLExecutor, id int64) error {
	return m.Called(id).Error(0)
}

type mockReportRepo struct{ mock.Mock }

func (m *mockReportRepo) CountCustomers() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockReportRepo) GetCardLifecycles() ([]models.MembershipCard, error) {
	args := m.Called()
	c, _ := args.Get(0).([]models.MembershipCard)
	return c, args.Error(1)
}

func (m *mockReportRepo) GetServiceTotals(from, to time.Time) (*repositories.ServiceTotals, error) {
	args := m.Called(from, to)
	t, _ := args.Get(0).(*repositories.ServiceTotals)
	return t, args.Error(1)
}

func (m *mockReportRepo) GetDailyRevenue(from, to time.Time) ([]models.DailyRevenue, error) {
	args := m.Called(from, to)
	d, _ := args.Get(0).([]models.DailyRevenue)
	return d, args.Error(1)
}

type mockAuthRepo struct{ mock.Mock }

func (m *mockAuthRepo) CreateUser(executor repositories.SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	args := m.Called(user, hashedPassword)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAuthRepo) FindUserByUsername(username string) (*models.User, string, error) {
	args := m.Called(username)
	u, _ := args.Get(0).(*models.User)
	return u, args.String(1), args.Error(2)
}

func (m *mockAuthRepo) FindUserByID(userID int64) (*models.User, error) {
	args := m.Called(userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAuthRepo) FindRoleByName(name string) (*models.Role, error) {
	args := m.Called(name)
	r, _ := args.Get(0).(*models.Role)
	return r, args.Error(1)
}

type mockStaffRepo struct{ mock.Mock }

func (m *mockStaffRepo) CreateTherapist(executor repositories.SQLExecutor, therapist *models.Therapist) (*models.Therapist, error) {
	args := m.Called(therapist)
	t, _ := args.Get(0).(*models.Therapist)
	return t, args.Error(1)
}

func (m *mockStaffRepo) GetTherapistByID(id int64) (*models.Therapist, error) {
	args := m.Called(id)
	t, _ := args.Get(0).(*models.Therapist)
	return t, args.Error(1)
}

func (m *mockStaffRepo) GetTherapists(page, pageSize int, searchTerm *string, activeOnly bool) ([]models.Therapist, int, error) {
	args := m.Called(page, pageSize, searchTerm, activeOnly)
	t, _ := args.Get(0).([]models.Therapist)
	return t, args.Int(1), args.Error(2)
}

func (m *mockStaffRepo) UpdateTherapist(executor repositories.SQLExecutor, therapist *models.Therapist) (*models.Therapist, error) {
	args := m.Called(therapist)
	t, _ := args.Get(0).(*models.Therapist)
	return t, args.Error(1)
}

func (m *mockStaffRepo) DeleteTherapist(executor repositories.SQLExecutor, id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockStaffRepo) CreateShift(executor repositories.SQLExecutor, shift *models.Shift) (*models.Shift, error) {
	args := m.Called(shift)
	s, _ := args.Get(0).(*models.Shift)
	return s, args.Error(1)
}

func (m *mockStaffRepo) GetShiftByID(id int64) (*models.Shift, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*models.Shift)
	return s, args.Error(1)
}

func (m *mockStaffRepo) GetShifts(filters models.ShiftFilters) ([]models.Shift, int, error) {
	args := m.Called(filters)
	s, _ := args.Get(0).([]models.Shift)
	return s, args.Int(1), args.Error(2)
}

func (m *mockStaffRepo) HasOverlappingShift(therapistID int64, start, end time.Time, excludeShiftID *int64) (bool, error) {
	args := m.Called(therapistID, start, end, excludeShiftID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStaffRepo) UpdateShift(executor repositories.SQLExecutor, shift *models.Shift) (*models.Shift, error) {
	args := m.Called(shift)
	s, _ := args.Get(0).(*models.Shift)
	return s, args.Error(1)
}

func (m *mockStaffRepo) DeleteShift(executor repositories.SQLExecutor, id int64) error {
	return m.Called(id).Error(0)
}

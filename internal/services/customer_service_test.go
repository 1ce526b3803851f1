package services

import (
	"testing"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCustomerFixture(t *testing.T) (*mockCustomerRepo, *mockCardRepo, CustomerService) {
	db, _ := newTestDB(t)
	customers, cards := new(mockCustomerRepo), new(mockCardRepo)
	return customers, cards, NewCustomerService(customers, cards, db, fixedClock(testNow))
}

func TestAgeAt(t *testing.T) {
	birth := testNow.AddDate(-4, 0, 1)
	assert.Equal(t, 3, ageAt(birth, testNow))
	assert.Equal(t, 4, ageAt(testNow.AddDate(-4, 0, 0), testNow))
}

func TestCustomerService_GetCustomers(t *testing.T) {
	customers, cards, svc := newCustomerFixture(t)
	customers.On("GetCustomers", models.CustomerFilters{Page: 1, PageSize: 20}).Return([]models.Customer{
		{ID: 1, FullName: "小明", DateOfBirth: strPtr("2020-06-11")},
		{ID: 2, FullName: "小红"},
	}, 2, nil)
	cards.On("GetCardsByCustomerIDs", []int64{1, 2}).Return(map[int64][]models.MembershipCard{
		1: {{ID: 9, CustomerID: 1, Status: models.CardStatusActive, CardType: models.CardTypeCount}},
	}, nil)

	list, total, err := svc.GetCustomers(models.CustomerFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, models.EffectiveActive, list[0].MembershipStatus)
	require.NotNil(t, list[0].Age)
	assert.Equal(t, 3, *list[0].Age)
	assert.Equal(t, models.EffectiveNone, list[1].MembershipStatus)
	assert.Nil(t, list[1].Age)
}

func TestCustomerService_GetCustomerByID(t *testing.T) {
	customers, cards, svc := newCustomerFixture(t)
	customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
	customers.On("GetCustomerByID", int64(2)).Return(nil, repositories.ErrNotFound)
	cards.On("GetCardsByCustomerID", int64(1)).Return([]models.MembershipCard{
		{ID: 9, CustomerID: 1, Status: models.CardStatusActive, ExpiryDate: day(2024, 6, 9)},
	}, nil)

	c, err := svc.GetCustomerByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.EffectiveExpired, c.MembershipStatus)

	_, err = svc.GetCustomerByID(2)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCustomerService_CreateCustomer(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		customers, _, svc := newCustomerFixture(t)
		customers.On("CreateCustomer", mock.MatchedBy(func(c *models.Customer) bool {
			return c.FullName == "小明" && *c.Gender == "male" && *c.GuardianPhone == "13800138000"
		})).Return(int64(5), nil)

		c, err := svc.CreateCustomer(CreateCustomerRequest{
			FullName:      " 小明 ",
			Gender:        strPtr("Male"),
			DateOfBirth:   strPtr("2021-01-15"),
			GuardianPhone: strPtr("13800138000"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), c.ID)
		assert.Equal(t, models.EffectiveNone, c.MembershipStatus)
		assert.Equal(t, 3, *c.Age)
	})

	invalid := map[string]CreateCustomerRequest{
		"birth date in the future": {FullName: "a", DateOfBirth: strPtr("2030-01-01")},
		"bad birth date":           {FullName: "a", DateOfBirth: strPtr("15/01/2021")},
		"bad phone":                {FullName: "a", GuardianPhone: strPtr("12345")},
		"bad gender":               {FullName: "a", Gender: strPtr("x")},
		"blank name":               {FullName: "  "},
	}
	for name, req := range invalid {
		t.Run(name, func(t *testing.T) {
			_, _, svc := newCustomerFixture(t)
			_, err := svc.CreateCustomer(req)
			assert.ErrorIs(t, err, ErrCustomerValidation)
		})
	}

	t.Run("phone taken", func(t *testing.T) {
		customers, _, svc := newCustomerFixture(t)
		customers.On("CreateCustomer", mock.Anything).Return(int64(0), repositories.ErrDuplicateKey)
		_, err := svc.CreateCustomer(CreateCustomerRequest{FullName: "小明", GuardianPhone: strPtr("13800138000")})
		assert.ErrorIs(t, err, ErrCustomerPhoneTaken)
	})
}

func TestCustomerService_DeleteCustomer(t *testing.T) {
	customers, _, svc := newCustomerFixture(t)
	customers.On("DeleteCustomer", int64(1)).Return(repositories.ErrForeignKey)
	customers.On("DeleteCustomer", int64(2)).Return(repositories.ErrNotFound)
	customers.On("DeleteCustomer", int64(3)).Return(nil)

	assert.ErrorIs(t, svc.DeleteCustomer(1), ErrCustomerInUse)
	assert.ErrorIs(t, svc.DeleteCustomer(2), ErrCustomerNotFound)
	assert.NoError(t, svc.DeleteCustomer(3))
}

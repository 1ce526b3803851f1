package services

import (
	"testing"
	"time"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"
	"tuina_clinic_backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_RegisterUser(t *testing.T) {
	t.Run("defaults to receptionist", func(t *testing.T) {
		db, _ := newTestDB(t)
		repo := new(mockAuthRepo)
		svc := NewAuthService(repo, db)
		repo.On("FindRoleByName", models.RoleReceptionist).Return(&models.Role{ID: 2, Name: models.RoleReceptionist}, nil)
		repo.On("CreateUser", mock.MatchedBy(func(u *models.User) bool { return *u.RoleID == 2 }), mock.AnythingOfType("string")).
			Return(int64(10), nil)
		repo.On("FindUserByID", int64(10)).Return(&models.User{ID: 10, Username: "front", PasswordHash: "x"}, nil)

		user, err := svc.RegisterUser(RegisterUserRequest{Username: "front", Email: "a@b.cn", Password: "password1", FullName: "前台"})
		require.NoError(t, err)
		assert.Equal(t, int64(10), user.ID)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("unknown role", func(t *testing.T) {
		db, _ := newTestDB(t)
		repo := new(mockAuthRepo)
		svc := NewAuthService(repo, db)
		repo.On("FindRoleByName", "Client").Return(nil, repositories.ErrNotFound)

		_, err := svc.RegisterUser(RegisterUserRequest{Username: "x", Email: "x@clinic.cn", Password: "password1", RoleName: "Client"})
		assert.ErrorIs(t, err, ErrRoleNotFound)
	})

	t.Run("rejects bad input before touching the store", func(t *testing.T) {
		db, _ := newTestDB(t)
		repo := new(mockAuthRepo)
		svc := NewAuthService(repo, db)

		_, err := svc.RegisterUser(RegisterUserRequest{Username: "  ", Email: "x@clinic.cn", Password: "password1"})
		assert.ErrorIs(t, err, ErrUserValidation)
		_, err = svc.RegisterUser(RegisterUserRequest{Username: "x", Email: "not-an-email", Password: "password1"})
		assert.ErrorIs(t, err, ErrUserValidation)
		_, err = svc.RegisterUser(RegisterUserRequest{Username: "x", Email: "x@clinic.cn", Password: "short"})
		assert.ErrorIs(t, err, ErrUserValidation)
		repo.AssertNotCalled(t, "FindRoleByName", mock.Anything)
	})
}

func TestAuthService_LoginUser(t *testing.T) {
	utils.SetJWTSecret("test-secret", time.Hour)
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)

	db, _ := newTestDB(t)
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, db)
	user := &models.User{ID: 3, Username: "admin", IsActive: true, Role: &models.Role{Name: models.RoleAdmin}}
	repo.On("FindUserByUsername", "admin").Return(user, string(hash), nil)
	repo.On("FindUserByUsername", "ghost").Return(nil, "", repositories.ErrNotFound)

	resp, err := svc.LoginUser(LoginRequest{Username: "admin", Password: "password1"})
	require.NoError(t, err)
	claims, err := utils.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.LoginUser(LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.LoginUser(LoginRequest{Username: "ghost", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

package user

import (
	"context"
	"testing"

	"markethub-be/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, name, email, password string, role Role) (User, error) {
	args := m.Called(ctx, name, email, password, role)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int64) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func TestRegister(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("Create", mock.Anything, "Ana", "ana@example.com", mock.AnythingOfType("string"), RoleVendor).
		Return(User{ID: 1, Name: "Ana", Email: "ana@example.com", Role: RoleVendor, IsActive: true}, nil).
		Run(func(args mock.Arguments) {
			hashed := args.String(3)
			assert.True(t, auth.CheckPasswordHash("s3cret", hashed))
		})

	token, u, err := svc.Register(context.Background(), "Ana", "ana@example.com", "s3cret", RoleVendor)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, RoleVendor, u.Role)

	claims, err := auth.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.ActorID)
	assert.Equal(t, "vendor", claims.Role)
	repo.AssertExpectations(t)
}

func TestRegister_DefaultsToCustomer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("Create", mock.Anything, "Bo", "bo@example.com", mock.AnythingOfType("string"), RoleCustomer).
		Return(User{ID: 2, Email: "bo@example.com", Role: RoleCustomer, IsActive: true}, nil)

	_, u, err := svc.Register(context.Background(), "Bo", "bo@example.com", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, u.Role)
}

func TestRegister_InvalidRole(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)

	_, _, err := svc.Register(context.Background(), "Cy", "cy@example.com", "pw", Role("superuser"))
	assert.ErrorIs(t, err, ErrInvalidRole)
	repo.AssertNotCalled(t, "Create")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("Create", mock.Anything, "Ana", "ana@example.com", mock.AnythingOfType("string"), RoleCustomer).
		Return(User{}, ErrEmailExists)

	_, _, err := svc.Register(context.Background(), "Ana", "ana@example.com", "pw", RoleCustomer)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	hashed, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("FindByEmail", mock.Anything, "ana@example.com").
		Return(User{ID: 1, Email: "ana@example.com", Password: hashed, Role: RoleAdmin, IsActive: true}, nil)

	token, u, err := svc.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestLogin_WrongPassword(t *testing.T) {
	hashed, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("FindByEmail", mock.Anything, "ana@example.com").
		Return(User{ID: 1, Password: hashed, IsActive: true}, nil)

	_, _, err = svc.Login(context.Background(), "ana@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("FindByEmail", mock.Anything, "ghost@example.com").
		Return(User{}, ErrUserNotFound)

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	hashed, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("FindByEmail", mock.Anything, "ana@example.com").
		Return(User{ID: 1, Password: hashed, IsActive: false}, nil)

	_, _, err = svc.Login(context.Background(), "ana@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInactive)
}

package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ragdesk/internal/model"
	"ragdesk/internal/pkg/jwtutil"
)

type memUserStore struct {
	nextID uint
	users  map[string]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, users: map[string]*model.User{}}
}

func (m *memUserStore) Create(user *model.User) error {
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = user
	return nil
}

func (m *memUserStore) GetByUsername(username string) (*model.User, error) {
	return m.users[username], nil
}

func (m *memUserStore) GetByEmail(email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) GetByID(id uint) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func newTestAuthService(store *memUserStore) *AuthService {
	return NewAuthService(store, "test-secret", time.Hour, nil)
}

func TestRegisterIssuesToken(t *testing.T) {
	store := newMemUserStore()
	svc := newTestAuthService(store)

	result, err := svc.Register(RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "supersecret"})
	require.NoError(t, err)
	require.NotNil(t, result.User)

	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.NotEqual(t, "supersecret", result.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("supersecret")))

	claims, err := jwtutil.ParseToken("test-secret", result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	store := newMemUserStore()
	svc := newTestAuthService(store)

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Username: "alice", Email: "other@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.Register(RegisterInput{Username: "bob", Email: "alice@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := newTestAuthService(newMemUserStore())

	cases := []RegisterInput{
		{Username: "", Email: "a@b.c", Password: "supersecret"},
		{Username: "alice", Email: "", Password: "supersecret"},
		{Username: "alice", Email: "a@b.c", Password: "short"},
	}
	for _, input := range cases {
		_, err := svc.Register(input)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestLogin(t *testing.T) {
	store := newMemUserStore()
	svc := newTestAuthService(store)

	_, err := svc.Register(RegisterInput{Username: "alice", Email: "alice@example.com", Password: "supersecret"})
	require.NoError(t, err)

	result, err := svc.Login(LoginInput{Username: "alice", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	// Wrong password and unknown user come back as the same error.
	_, err = svc.Login(LoginInput{Username: "alice", Password: "wrongsecret"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.Login(LoginInput{Username: "nobody", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGetUserByIDValidatesInput(t *testing.T) {
	svc := newTestAuthService(newMemUserStore())

	_, err := svc.GetUserByID(0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

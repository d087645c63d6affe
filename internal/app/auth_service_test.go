package app

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lexhub/internal/model"
)

type fakeUserStore struct {
	users  map[uint]*model.User
	nextID uint
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint]*model.User{}}
}

func (f *fakeUserStore) Create(user *model.User) error {
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) Update(user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByUsername(username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByEmail(email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByID(id uint) (*model.User, error) {
	return f.users[id], nil
}

type fakeRecoveryStore struct {
	codes  []model.RecoveryCode
	nextID uint
}

func (f *fakeRecoveryStore) ReplaceForUser(userID uint, codes []model.RecoveryCode) error {
	kept := f.codes[:0]
	for _, c := range f.codes {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	f.codes = kept
	for _, c := range codes {
		f.nextID++
		c.ID = f.nextID
		f.codes = append(f.codes, c)
	}
	return nil
}

func (f *fakeRecoveryStore) ListUnusedByUserID(userID uint) ([]model.RecoveryCode, error) {
	var unused []model.RecoveryCode
	for _, c := range f.codes {
		if c.UserID == userID && c.UsedAt == nil {
			unused = append(unused, c)
		}
	}
	return unused, nil
}

func (f *fakeRecoveryStore) MarkUsed(id uint) error {
	now := time.Now()
	for i := range f.codes {
		if f.codes[i].ID == id {
			f.codes[i].UsedAt = &now
		}
	}
	return nil
}

func (f *fakeRecoveryStore) DeleteByUserID(userID uint) error {
	kept := f.codes[:0]
	for _, c := range f.codes {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	f.codes = kept
	return nil
}

func newTestAuthService() (*AuthService, *fakeUserStore, *fakeRecoveryStore) {
	users := newFakeUserStore()
	recovery := &fakeRecoveryStore{}
	svc := NewAuthService(users, recovery, "test-secret", time.Hour, "lexhub-test")
	return svc, users, recovery
}

// seedUser plants a user directly so the slow Register path can be
// skipped. A non-empty secret with enabled=true means 2FA is active.
func seedUser(t *testing.T, users *fakeUserStore, secret string, enabled bool) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		Username:         "maya",
		Email:            "maya@example.com",
		PasswordHash:     string(hash),
		Role:             model.RoleClient,
		TwoFactorEnabled: enabled,
		TOTPSecret:       secret,
	}
	require.NoError(t, users.Create(user))
	return user
}

func testTOTPSecret(t *testing.T) string {
	t.Helper()
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "lexhub-test", AccountName: "maya@example.com"})
	require.NoError(t, err)
	return key.Secret()
}

func TestLoginWith2FARequiresCode(t *testing.T) {
	svc, users, _ := newTestAuthService()
	seedUser(t, users, testTOTPSecret(t), true)

	result, err := svc.Login(LoginInput{Username: "maya", Password: "secret-pass"})
	assert.ErrorIs(t, err, ErrTwoFactorRequired)
	assert.Nil(t, result)
}

func TestLoginWith2FARejectsBadCode(t *testing.T) {
	svc, users, _ := newTestAuthService()
	seedUser(t, users, testTOTPSecret(t), true)

	result, err := svc.Login(LoginInput{Username: "maya", Password: "secret-pass", TOTPCode: "99999"})
	assert.ErrorIs(t, err, ErrInvalidTwoFactor)
	assert.Nil(t, result)
}

func TestLoginWith2FAAcceptsValidCode(t *testing.T) {
	svc, users, _ := newTestAuthService()
	secret := testTOTPSecret(t)
	seedUser(t, users, secret, true)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	result, err := svc.Login(LoginInput{Username: "maya", Password: "secret-pass", TOTPCode: code})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestRecoveryCodeIsSingleUse(t *testing.T) {
	svc, users, _ := newTestAuthService()
	user := seedUser(t, users, "", false)

	setup, err := svc.Setup2FA(user.ID)
	require.NoError(t, err)
	require.Len(t, setup.RecoveryCodes, recoveryCodeCount)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Confirm2FA(user.ID, code))

	recovery := setup.RecoveryCodes[0]
	_, err = svc.Login(LoginInput{Username: "maya", Password: "secret-pass", TOTPCode: recovery})
	require.NoError(t, err)

	_, err = svc.Login(LoginInput{Username: "maya", Password: "secret-pass", TOTPCode: recovery})
	assert.ErrorIs(t, err, ErrInvalidTwoFactor)

	// The remaining codes still work.
	_, err = svc.Login(LoginInput{Username: "maya", Password: "secret-pass", TOTPCode: setup.RecoveryCodes[1]})
	require.NoError(t, err)
}

func TestConfirm2FARejectsBadCode(t *testing.T) {
	svc, users, _ := newTestAuthService()
	user := seedUser(t, users, "", false)

	_, err := svc.Setup2FA(user.ID)
	require.NoError(t, err)

	err = svc.Confirm2FA(user.ID, "99999")
	assert.ErrorIs(t, err, ErrInvalidTwoFactor)

	stored, err := users.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TwoFactorEnabled)
}

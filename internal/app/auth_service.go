package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"lexhub/internal/model"
	"lexhub/internal/pkg/jwtutil"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrTwoFactorRequired = errors.New("two-factor code required")
	ErrInvalidTwoFactor  = errors.New("invalid two-factor code")
	ErrTwoFactorNotSetUp = errors.New("two-factor auth is not set up")
	ErrTwoFactorActive   = errors.New("two-factor auth is already enabled")
)

const recoveryCodeCount = 8

// UserStore persists user accounts.
type UserStore interface {
	Create(user *model.User) error
	Update(user *model.User) error
	GetByUsername(username string) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	GetByID(id uint) (*model.User, error)
}

// RecoveryCodeStore persists hashed single-use 2FA recovery codes.
type RecoveryCodeStore interface {
	ReplaceForUser(userID uint, codes []model.RecoveryCode) error
	ListUnusedByUserID(userID uint) ([]model.RecoveryCode, error)
	MarkUsed(id uint) error
	DeleteByUserID(userID uint) error
}

type AuthService struct {
	userRepo      UserStore
	recoveryRepo  RecoveryCodeStore
	jwtSecret     string
	jwtExpiration time.Duration
	totpIssuer    string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

type LoginInput struct {
	Username string
	Password string
	TOTPCode string
}

type AuthResult struct {
	Token string
	User  *model.User
}

// TwoFactorSetup is returned once; the recovery codes are not
// retrievable afterwards.
type TwoFactorSetup struct {
	Secret        string   `json:"secret"`
	OTPAuthURL    string   `json:"otpauth_url"`
	RecoveryCodes []string `json:"recovery_codes"`
}

func NewAuthService(
	userRepo UserStore,
	recoveryRepo RecoveryCodeStore,
	jwtSecret string,
	jwtExpiration time.Duration,
	totpIssuer string,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		recoveryRepo:  recoveryRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		totpIssuer:    totpIssuer,
	}
}

func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = model.RoleClient
	}

	if username == "" || email == "" || password == "" || len(password) < 8 {
		return nil, ErrInvalidInput
	}
	if role != model.RoleClient && role != model.RoleLawyer {
		return nil, ErrInvalidInput
	}

	existingByName, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	if user.TwoFactorEnabled {
		code := strings.TrimSpace(input.TOTPCode)
		if code == "" {
			return nil, ErrTwoFactorRequired
		}
		if err := s.verifySecondFactor(user, code); err != nil {
			return nil, err
		}
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Setup2FA generates a TOTP secret and recovery codes. 2FA stays off
// until Confirm2FA sees one valid code from the authenticator.
func (s *AuthService) Setup2FA(userID uint) (*TwoFactorSetup, error) {
	user, err := s.requireUser(userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorActive
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key failed: %w", err)
	}

	plainCodes := make([]string, recoveryCodeCount)
	hashedCodes := make([]model.RecoveryCode, recoveryCodeCount)
	for i := range plainCodes {
		code := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash recovery code failed: %w", err)
		}
		plainCodes[i] = code
		hashedCodes[i] = model.RecoveryCode{UserID: userID, CodeHash: string(hash)}
	}

	user.TOTPSecret = key.Secret()
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	if err := s.recoveryRepo.ReplaceForUser(userID, hashedCodes); err != nil {
		return nil, err
	}

	return &TwoFactorSetup{
		Secret:        key.Secret(),
		OTPAuthURL:    key.URL(),
		RecoveryCodes: plainCodes,
	}, nil
}

func (s *AuthService) Confirm2FA(userID uint, code string) error {
	user, err := s.requireUser(userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return ErrTwoFactorActive
	}
	if user.TOTPSecret == "" {
		return ErrTwoFactorNotSetUp
	}
	if !totp.Validate(strings.TrimSpace(code), user.TOTPSecret) {
		return ErrInvalidTwoFactor
	}

	user.TwoFactorEnabled = true
	return s.userRepo.Update(user)
}

// Disable2FA turns 2FA off after verifying a TOTP or recovery code.
func (s *AuthService) Disable2FA(userID uint, code string) error {
	user, err := s.requireUser(userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotSetUp
	}
	if err := s.verifySecondFactor(user, strings.TrimSpace(code)); err != nil {
		return err
	}

	user.TwoFactorEnabled = false
	user.TOTPSecret = ""
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	return s.recoveryRepo.DeleteByUserID(userID)
}

func (s *AuthService) GetUserByID(id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(id)
}

// verifySecondFactor accepts a live TOTP code or burns a recovery code.
func (s *AuthService) verifySecondFactor(user *model.User, code string) error {
	if code == "" {
		return ErrInvalidTwoFactor
	}
	if totp.Validate(code, user.TOTPSecret) {
		return nil
	}

	codes, err := s.recoveryRepo.ListUnusedByUserID(user.ID)
	if err != nil {
		return err
	}
	for i := range codes {
		if bcrypt.CompareHashAndPassword([]byte(codes[i].CodeHash), []byte(code)) == nil {
			return s.recoveryRepo.MarkUsed(codes[i].ID)
		}
	}
	return ErrInvalidTwoFactor
}

func (s *AuthService) requireUser(userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	return user, nil
}

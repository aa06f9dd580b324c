package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/arjunhariram/ent-web/entity"
	"github.com/arjunhariram/ent-web/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testMobile = entity.MobileNumber("9123456789")
	testIP     = "203.0.113.7"
)

func newContext(t *testing.T, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRealIP, testIP)
	rec := httptest.NewRecorder()

	return echo.New().NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type mockOTPService struct {
	mock.Mock
}

func (m *mockOTPService) SendOTP(ctx context.Context, mobile entity.MobileNumber, ip string, purpose entity.Purpose) (*entity.SendOTPResult, error) {
	args := m.Called(ctx, mobile, ip, purpose)
	result, _ := args.Get(0).(*entity.SendOTPResult)
	return result, args.Error(1)
}

func (m *mockOTPService) ResendOTP(ctx context.Context, mobile entity.MobileNumber, ip string) (*entity.SendOTPResult, error) {
	args := m.Called(ctx, mobile, ip)
	result, _ := args.Get(0).(*entity.SendOTPResult)
	return result, args.Error(1)
}

func (m *mockOTPService) VerifyOTP(ctx context.Context, mobile entity.MobileNumber, code, ip string) (*entity.VerifyOTPResult, error) {
	args := m.Called(ctx, mobile, code, ip)
	result, _ := args.Get(0).(*entity.VerifyOTPResult)
	return result, args.Error(1)
}

func (m *mockOTPService) CheckStatus(ctx context.Context, mobile entity.MobileNumber) (*entity.OTPStatus, error) {
	args := m.Called(ctx, mobile)
	result, _ := args.Get(0).(*entity.OTPStatus)
	return result, args.Error(1)
}

func (m *mockOTPService) CheckIPStatus(ctx context.Context, ip string) (*entity.IPStatus, error) {
	args := m.Called(ctx, ip)
	result, _ := args.Get(0).(*entity.IPStatus)
	return result, args.Error(1)
}

func (m *mockOTPService) CleanupExpired(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockPasswordService struct {
	mock.Mock
}

func (m *mockPasswordService) SetPassword(ctx context.Context, mobile entity.MobileNumber, password, confirm string) (*entity.PasswordResult, error) {
	args := m.Called(ctx, mobile, password, confirm)
	result, _ := args.Get(0).(*entity.PasswordResult)
	return result, args.Error(1)
}

func (m *mockPasswordService) ResetPassword(ctx context.Context, mobile entity.MobileNumber, password, confirm string) (*entity.PasswordResult, error) {
	args := m.Called(ctx, mobile, password, confirm)
	result, _ := args.Get(0).(*entity.PasswordResult)
	return result, args.Error(1)
}

func (m *mockPasswordService) ChangePassword(ctx context.Context, mobile entity.MobileNumber, current, password, confirm string) (*entity.PasswordResult, error) {
	args := m.Called(ctx, mobile, current, password, confirm)
	result, _ := args.Get(0).(*entity.PasswordResult)
	return result, args.Error(1)
}

func (m *mockPasswordService) ValidateFormat(password string) service.PasswordFormatResult {
	return m.Called(password).Get(0).(service.PasswordFormatResult)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Login(ctx context.Context, mobile entity.MobileNumber, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, mobile, password)
	result, _ := args.Get(0).(*service.LoginResult)
	return result, args.Error(1)
}

func (m *mockUserService) GetByID(ctx context.Context, id int) (*entity.UserResponse, error) {
	args := m.Called(ctx, id)
	result, _ := args.Get(0).(*entity.UserResponse)
	return result, args.Error(1)
}

func (m *mockUserService) Exists(ctx context.Context, mobile entity.MobileNumber) (bool, error) {
	args := m.Called(ctx, mobile)
	return args.Bool(0), args.Error(1)
}

type mockJWTService struct {
	mock.Mock
}

func (m *mockJWTService) GenerateToken(user *entity.User) (*entity.AuthResponse, error) {
	args := m.Called(user)
	result, _ := args.Get(0).(*entity.AuthResponse)
	return result, args.Error(1)
}

func (m *mockJWTService) ValidateToken(ctx context.Context, tokenString string) (*jwt.Token, error) {
	args := m.Called(ctx, tokenString)
	result, _ := args.Get(0).(*jwt.Token)
	return result, args.Error(1)
}

func (m *mockJWTService) GetUserFromToken(token *jwt.Token) (*entity.User, error) {
	args := m.Called(token)
	result, _ := args.Get(0).(*entity.User)
	return result, args.Error(1)
}

func (m *mockJWTService) RevokeToken(ctx context.Context, tokenString string) error {
	return m.Called(ctx, tokenString).Error(0)
}

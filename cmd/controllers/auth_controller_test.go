package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"account-service/cmd/responses"
	"account-service/internal/accounts"
	"account-service/internal/apperr"
	"account-service/internal/models"
	requests "account-service/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) responses.ErrorResponse {
	t.Helper()
	var out responses.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeSuccess(t *testing.T, resp *httptest.ResponseRecorder) responses.UserResponse {
	t.Helper()
	var out responses.UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sampleUser() *models.User {
	return &models.User{
		Id:        primitive.NewObjectID(),
		FirstName: "Ana",
		LastName:  "Ruiz",
		Email:     "ana@acme.test",
		Password:  "$2a$10$digest",
		Role:      models.RoleUser,
	}
}

func TestRegister(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	Accounts = &MockAccounts{
		RegisterFunc: func(ctx context.Context, reg accounts.Registration) (*accounts.Session, error) {
			assert.Equal(t, "ana@acme.test", reg.Email)
			assert.Equal(t, "pw12345678", reg.Password)
			return &accounts.Session{Token: "signed.jwt.token", User: user}, nil
		},
	}
	router.POST("/api/auth/register", Register())

	resp := performJSON(router, http.MethodPost, "/api/auth/register", requests.RegisterRequest{
		FirstName: "Ana", LastName: "Ruiz", Email: "ana@acme.test", Password: "pw12345678",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)
	response := decodeSuccess(t, resp)
	assert.Equal(t, "success", response.Message)
	assert.Equal(t, "signed.jwt.token", response.Data["token"])
	userData := response.Data["user"].(map[string]interface{})
	assert.Equal(t, user.Id.Hex(), userData["_id"])
	assert.Equal(t, "ana@acme.test", userData["email"])
	assert.NotContains(t, userData, "password")
}

func TestRegisterValidationError(t *testing.T) {
	router := gin.New()
	Accounts = &MockAccounts{
		RegisterFunc: func(ctx context.Context, reg accounts.Registration) (*accounts.Session, error) {
			t.Fatal("register must not be called with an invalid body")
			return nil, nil
		},
	}
	router.POST("/api/auth/register", Register())

	resp := performJSON(router, http.MethodPost, "/api/auth/register", requests.RegisterRequest{
		Email: "ana@acme.test", Password: "pw12345678",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeSuccess(t, resp).Message)
}

func TestRegisterErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"conflict", apperr.ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
		{"upstream", apperr.Upstream(errors.New("socket closed")), http.StatusBadGateway, "UPSTREAM_FAILURE"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "ERROR_REGISTER_USER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			Accounts = &MockAccounts{
				RegisterFunc: func(ctx context.Context, reg accounts.Registration) (*accounts.Session, error) {
					return nil, tc.err
				},
			}
			router.POST("/api/auth/register", Register())

			resp := performJSON(router, http.MethodPost, "/api/auth/register", requests.RegisterRequest{
				FirstName: "Ana", LastName: "Ruiz", Email: "ana@acme.test", Password: "pw12345678",
			})

			assert.Equal(t, tc.status, resp.Code)
			assert.Equal(t, responses.ErrorResponse{Success: false, Message: tc.message, Code: tc.status}, decodeError(t, resp))
		})
	}
}

func TestLoginErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.ErrUserNotFound, http.StatusNotFound},
		{apperr.ErrEmailNotVerified, http.StatusForbidden},
		{apperr.ErrInvalidPassword, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		router := gin.New()
		Accounts = &MockAccounts{
			LoginFunc: func(ctx context.Context, email, password string) (*accounts.Session, error) {
				return nil, tc.err
			},
		}
		router.POST("/api/auth/login", Login())

		resp := performJSON(router, http.MethodPost, "/api/auth/login", requests.LoginRequest{Email: "ana@acme.test", Password: "pw12345678"})
		assert.Equal(t, tc.status, resp.Code)
	}
}

func TestVerifyEmailLocked(t *testing.T) {
	router := gin.New()
	Accounts = &MockAccounts{
		VerifyEmailFunc: func(ctx context.Context, email, code string) error {
			assert.Equal(t, "123456", code)
			return apperr.ErrVerificationLocked
		},
	}
	router.POST("/api/auth/verify-email", VerifyEmail())

	resp := performJSON(router, http.MethodPost, "/api/auth/verify-email", requests.VerifyEmailRequest{Email: "ana@acme.test", VerificationCode: "123456"})

	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "VERIFICATION_ATTEMPTS_EXCEEDED", decodeError(t, resp).Message)
}

func TestForgotAndResetPassword(t *testing.T) {
	router := gin.New()
	Accounts = &MockAccounts{
		ForgotPasswordFunc: func(ctx context.Context, email string) (string, error) {
			return "654321", nil
		},
		ResetPasswordFunc: func(ctx context.Context, token, newPassword string) error {
			if token != "654321" {
				return apperr.ErrInvalidOrExpiredToken
			}
			return nil
		},
	}
	router.POST("/api/auth/forgot-password", ForgotPassword())
	router.POST("/api/auth/reset-password", ResetPassword())

	resp := performJSON(router, http.MethodPost, "/api/auth/forgot-password", requests.ForgotPasswordRequest{Email: "ana@acme.test"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "654321", decodeSuccess(t, resp).Data["resetToken"])

	resp = performJSON(router, http.MethodPost, "/api/auth/reset-password", requests.ResetPasswordRequest{Token: "000000", NewPassword: "newpass123"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_OR_EXPIRED_TOKEN", decodeError(t, resp).Message)

	resp = performJSON(router, http.MethodPost, "/api/auth/reset-password", requests.ResetPasswordRequest{Token: "654321", NewPassword: "newpass123"})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestGetCurrentUser(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	Accounts = &MockAccounts{
		CurrentUserFunc: func(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
			assert.Equal(t, user.Id, id)
			return user, nil
		},
	}
	router.GET("/api/auth/me", withUser(user), GetCurrentUser())

	resp := performJSON(router, http.MethodGet, "/api/auth/me", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	userData := decodeSuccess(t, resp).Data["user"].(map[string]interface{})
	assert.Equal(t, "Ana", userData["firstName"])
}

func TestGetCurrentUserWithoutSession(t *testing.T) {
	router := gin.New()
	Accounts = &MockAccounts{}
	router.GET("/api/auth/me", GetCurrentUser())

	resp := performJSON(router, http.MethodGet, "/api/auth/me", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "NOT_SESSION", decodeError(t, resp).Message)
}

func TestUpdateProfileRejectsProtectedFields(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	Accounts = &MockAccounts{
		UpdateProfileFunc: func(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
			if len(patch.ProtectedFields()) > 0 {
				return nil, apperr.ErrProtectedField
			}
			return user, nil
		},
	}
	router.PUT("/api/auth/onboarding", withUser(user), UpdateProfile())

	resp := performJSON(router, http.MethodPut, "/api/auth/onboarding", map[string]interface{}{"validated": true})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "PROTECTED_FIELD", decodeError(t, resp).Message)

	resp = performJSON(router, http.MethodPut, "/api/auth/onboarding", map[string]interface{}{
		"company": map[string]interface{}{"name": "Acme", "cif": "B12345678"},
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestDeleteAccountSoftFlag(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	var gotSoft []bool
	Accounts = &MockAccounts{
		DeleteAccountFunc: func(ctx context.Context, id primitive.ObjectID, soft bool) error {
			gotSoft = append(gotSoft, soft)
			return nil
		},
	}
	router.DELETE("/api/auth/delete", withUser(user), DeleteAccount())

	assert.Equal(t, http.StatusOK, performJSON(router, http.MethodDelete, "/api/auth/delete", nil).Code)
	assert.Equal(t, http.StatusOK, performJSON(router, http.MethodDelete, "/api/auth/delete?soft=true", nil).Code)
	assert.Equal(t, http.StatusOK, performJSON(router, http.MethodDelete, "/api/auth/delete?soft=false", nil).Code)
	assert.Equal(t, []bool{true, true, false}, gotSoft)
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req, _ := http.NewRequest(http.MethodPatch, "/api/auth/logo", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadLogo(t *testing.T) {
	router := gin.New()
	user := sampleUser()
	Accounts = &MockAccounts{
		UploadLogoFunc: func(ctx context.Context, id primitive.ObjectID, data []byte, filename string) (string, error) {
			assert.Equal(t, []byte("png-bytes"), data)
			assert.Equal(t, "logo.png", filename)
			return "https://gateway.example/ipfs/QmHash", nil
		},
	}
	router.PATCH("/api/auth/logo", withUser(user), UploadLogo())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartRequest(t, "image", "logo.png", []byte("png-bytes")))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "https://gateway.example/ipfs/QmHash", decodeSuccess(t, resp).Data["profilePicture"])
}

func TestUploadLogoFailures(t *testing.T) {
	user := sampleUser()

	router := gin.New()
	Accounts = &MockAccounts{}
	router.PATCH("/api/auth/logo", withUser(user), UploadLogo())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, multipartRequest(t, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "NO_FILE_PROVIDED", decodeError(t, resp).Message)

	router = gin.New()
	Accounts = &MockAccounts{
		UploadLogoFunc: func(ctx context.Context, id primitive.ObjectID, data []byte, filename string) (string, error) {
			return "", apperr.Upstream(errors.New("pinata unavailable"))
		},
	}
	router.PATCH("/api/auth/logo", withUser(user), UploadLogo())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, multipartRequest(t, "image", "logo.png", []byte("png-bytes")))
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

package controllers

import (
	"io"
	"net/http"

	"account-service/cmd/middleware"
	"account-service/cmd/responses"
	"account-service/internal/accounts"
	"account-service/internal/apperr"
	"account-service/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var errFileTooLarge = apperr.New(apperr.ValidationFailed, "FILE_TOO_LARGE")

// bind decodes and validates the JSON body into req. It answers the request and
// returns false when the body is unusable.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		responses.ValidationError(c, err)
		return false
	}
	if err := validate.Struct(req); err != nil {
		responses.ValidationError(c, err)
		return false
	}
	return true
}

func Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		var req models.RegisterRequest
		if !bind(c, &req) {
			return
		}

		session, err := Accounts.Register(ctx, accounts.Registration{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Password:  req.Password,
		})
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_REGISTER_USER")
			return
		}

		c.JSON(http.StatusCreated, responses.UserResponse{Status: http.StatusCreated, Message: "success", Data: map[string]interface{}{"token": session.Token, "user": session.User}})
	}
}

func VerifyEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		var req models.VerifyEmailRequest
		if !bind(c, &req) {
			return
		}
		if err := Accounts.VerifyEmail(ctx, req.Email, req.VerificationCode); err != nil {
			responses.HandleHttpError(c, err, "ERROR_VERIFY_EMAIL")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "Email verified successfully"})
	}
}

func Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		var req models.LoginRequest
		if !bind(c, &req) {
			return
		}
		session, err := Accounts.Login(ctx, req.Email, req.Password)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_LOGIN_USER")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "success", Data: map[string]interface{}{"token": session.Token, "user": session.User}})
	}
}

// ForgotPassword hands the reset token back in the response body.
func ForgotPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		var req models.ForgotPasswordRequest
		if !bind(c, &req) {
			return
		}
		token, err := Accounts.ForgotPassword(ctx, req.Email)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_FORGOT_PASSWORD")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "Reset token generated", Data: map[string]interface{}{"resetToken": token}})
	}
}

func ResetPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		var req models.ResetPasswordRequest
		if !bind(c, &req) {
			return
		}
		if err := Accounts.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
			responses.HandleHttpError(c, err, "ERROR_RESET_PASSWORD")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "Password has been reset"})
	}
}

func GetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_GET_USER")
			return
		}
		user, err := Accounts.CurrentUser(ctx, current.Id)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_GET_USER")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "success", Data: map[string]interface{}{"user": user}})
	}
}

func UpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_UPDATE_USER")
			return
		}
		var req models.UpdateProfileRequest
		if !bind(c, &req) {
			return
		}

		user, err := Accounts.UpdateProfile(ctx, current.Id, req.Patch())
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_UPDATE_USER")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "success", Data: map[string]interface{}{"user": user}})
	}
}

// DeleteAccount soft-deletes unless the soft query parameter is "false".
func DeleteAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_DELETE_USER")
			return
		}
		soft := c.Query("soft") != "false"
		if err := Accounts.DeleteAccount(ctx, current.Id, soft); err != nil {
			responses.HandleHttpError(c, err, "ERROR_DELETE_USER")
			return
		}

		message := "User deleted permanently"
		if soft {
			message = "User deleted (soft delete)"
		}
		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: message})
	}
}

// UploadLogo reads the multipart field "image".
func UploadLogo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c.Request.Context())
		defer cancel()

		current, ok := middleware.CurrentUser(c)
		if !ok {
			responses.HandleHttpError(c, apperr.ErrNoSession, "ERROR_UPLOAD_LOGO")
			return
		}
		header, err := c.FormFile("image")
		if err != nil {
			log.Error().Err(err).Msg("No image in upload request")
			responses.HandleHttpError(c, apperr.ErrNoFile, "ERROR_UPLOAD_LOGO")
			return
		}
		if header.Size > MaxLogoBytes {
			responses.HandleHttpError(c, errFileTooLarge, "ERROR_UPLOAD_LOGO")
			return
		}
		file, err := header.Open()
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_UPLOAD_LOGO")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, MaxLogoBytes))
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_UPLOAD_LOGO")
			return
		}

		url, err := Accounts.UploadLogo(ctx, current.Id, data, header.Filename)
		if err != nil {
			responses.HandleHttpError(c, err, "ERROR_UPLOAD_LOGO")
			return
		}

		c.JSON(http.StatusOK, responses.UserResponse{Status: http.StatusOK, Message: "success", Data: map[string]interface{}{"profilePicture": url}})
	}
}

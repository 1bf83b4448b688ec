package usererrors

import (
	"net/http"

	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
)

var (
	ErrUserNotFound = apperror.New(
		apperror.CodeNotFound,
		"User not found",
		http.StatusNotFound,
	)

	ErrUserAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"User with the same email already exists",
		http.StatusConflict,
	)

	ErrInvalidUserID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid user ID",
		http.StatusBadRequest,
	)

	ErrInvalidRole = apperror.New(
		apperror.CodeInvalidInput,
		"Role must be one of ADMIN, RH, USER, INTERN",
		http.StatusBadRequest,
	)

	ErrWeakPassword = apperror.New(
		apperror.CodeInvalidInput,
		"Password must be at least 6 characters long and contain both a letter and a digit",
		http.StatusBadRequest,
	)

	ErrPasswordMismatch = apperror.New(
		apperror.CodeInvalidInput,
		"Passwords do not match",
		http.StatusBadRequest,
	)

	ErrPasswordOnly = apperror.New(
		apperror.CodeForbidden,
		"Only the password of your own account can be changed",
		http.StatusForbidden,
	)

	ErrCannotDeleteSelf = apperror.New(
		apperror.CodeInvalidState,
		"You cannot delete your own account",
		http.StatusConflict,
	)

	ErrUnknownBalance = apperror.New(
		apperror.CodeInvalidInput,
		"Unknown balance type",
		http.StatusBadRequest,
	)
)

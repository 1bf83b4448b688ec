package requesterrors

import (
	"net/http"

	"github.com/jesser-selmi/idos-front/internal/shared/apperror"
)

var (
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"Request not found",
		http.StatusNotFound,
	)

	ErrInvalidRequestID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid request ID",
		http.StatusBadRequest,
	)

	ErrInvalidType = apperror.New(
		apperror.CodeInvalidInput,
		"Type must be TELEWORK_REQUEST or LEAVE_REQUEST",
		http.StatusBadRequest,
	)

	ErrInvalidAction = apperror.New(
		apperror.CodeInvalidInput,
		"Action must be ACCEPT or REJECT",
		http.StatusBadRequest,
	)

	// ErrValidation carries the field errors in Details.
	ErrValidation = apperror.New(
		apperror.CodeValidation,
		"The request is not valid",
		http.StatusUnprocessableEntity,
	)

	ErrAlreadyDecided = apperror.New(
		apperror.CodeInvalidState,
		"The request has already been decided",
		http.StatusConflict,
	)

	ErrInvalidUserID = apperror.New(
		apperror.CodeUnauthorized,
		"Session user is not valid",
		http.StatusUnauthorized,
	)
)

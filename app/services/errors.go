package services

import "errors"

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrPostNotFound     = errors.New("post not found")
	ErrUserNotFound     = errors.New("user not found")

	// ErrInvalidStatus reports a status or payment status outside its enum.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is only returned when strict transitions are on.
	ErrInvalidTransition = errors.New("status transition not allowed")

	ErrForbidden = errors.New("forbidden")
)

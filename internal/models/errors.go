package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger wraps exactly one of them.
var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("invalid input")
	ErrInvalidState     = errors.New("invalid state")
)

var (
	ErrEmailNotUnique        = fmt.Errorf("%w: a user with this email already exists", ErrConflict)
	ErrCategoryNameNotUnique = fmt.Errorf("%w: the category name must be unique for the user", ErrConflict)
	ErrAlertNameNotUnique    = fmt.Errorf("%w: the alert name must be unique for the user", ErrConflict)
	ErrAttachmentExists      = fmt.Errorf("%w: the expense already has an attachment", ErrConflict)
)

var (
	ErrUncategorizedImmutable   = fmt.Errorf("%w: the uncategorized category cannot be deleted or renamed", ErrValidation)
	ErrCategoryNameReserved     = fmt.Errorf("%w: the category name is reserved", ErrValidation)
	ErrCategoryBounds           = fmt.Errorf("%w: minValue must not be greater than maxValue", ErrValidation)
	ErrUnknownCondition         = fmt.Errorf("%w: condition must be one of 'greater than', 'less than', 'equal to'", ErrValidation)
	ErrReferencedResourceAbsent = fmt.Errorf("%w: a referenced resource does not exist", ErrValidation)
	ErrAttachmentsDisabled      = fmt.Errorf("%w: attachments are not enabled on this server", ErrValidation)
	ErrNoAttachment             = fmt.Errorf("%w attachment for this expense", ErrResourceNotFound)
	ErrInvalidCredentials       = errors.New("email or password is not correct")
)

// ErrInvalidCondition is returned when a stored alert carries a condition
// that cannot be evaluated.
var ErrInvalidCondition = fmt.Errorf("%w: the stored alert condition is not supported", ErrInvalidState)

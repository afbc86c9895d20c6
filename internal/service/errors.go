package service

import "errors"

var (
	ErrStorageUpload = errors.New("storage upload failed")
	ErrUnknownOwner  = errors.New("owner does not exist")

	ErrUnauthorized        = errors.New("requester is not a party to this transfer")
	ErrSelfTransfer        = errors.New("giver and receiver must differ")
	ErrItemNotFound        = errors.New("item not found")
	ErrAlreadyGiven        = errors.New("item already given")
	ErrUnknownUser         = errors.New("unknown user")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrTransactionConflict = errors.New("transaction conflict")

	ErrInvalidUser = errors.New("invalid user")
	ErrUserExists  = errors.New("user already exists")
)

package models

import "errors"

// Custom errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateKey         = errors.New("duplicate key violation")
	ErrInvalidID            = errors.New("invalid ID format")
	ErrInsufficientData     = errors.New("insufficient verified samples to train")
	ErrMissingFeatureInput  = errors.New("required feature input missing")
	ErrNoActiveModel        = errors.New("no active model for market")
	ErrUpstreamDataFailure  = errors.New("upstream data source failure")
	ErrVerificationMismatch = errors.New("no confident fixture match for result")
	ErrUnknownMarket        = errors.New("unknown market")
)

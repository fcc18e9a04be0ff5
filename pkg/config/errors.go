package config

import "errors"

var (
	errInvalidPriority = errors.New("notification priority must be between -2 and 2")
)

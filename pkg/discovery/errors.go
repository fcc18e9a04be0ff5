package discovery

import "errors"

var (
	ErrScanActive  = errors.New("a discovery scan is already running")
	ErrNoScan      = errors.New("no discovery scan has been started")
	ErrInvalidCIDR = errors.New("invalid CIDR range")
	ErrRangeTooBig = errors.New("CIDR range exceeds the scan size limit")
)

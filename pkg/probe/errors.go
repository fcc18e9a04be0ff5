package probe

import "errors"

var (
	ErrTimeout         = errors.New("probe timed out")
	ErrUnreachable     = errors.New("host unreachable")
	ErrNoSuchObject    = errors.New("SNMP NoSuchObject")
	ErrNoSuchInstance  = errors.New("SNMP NoSuchInstance")
	ErrAuth            = errors.New("SNMP authorization failed")
	ErrUnsupportedType = errors.New("unsupported SNMP type")
	ErrInvalidTarget   = errors.New("invalid probe target")
	ErrEmptyResponse   = errors.New("empty SNMP response")
)

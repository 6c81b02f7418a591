package protocol

// Limits constrains decode memory use. Every untrusted length field is
// checked against these before a buffer of that size is allocated.
type Limits struct {
	MaxHeaderBytes  int
	MaxPayloadBytes int
	MaxRecordBytes  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxHeaderBytes:  1024,
		MaxPayloadBytes: 65535,
		MaxRecordBytes:  1 << 20,
	}
}

// CheckLength returns a LengthMismatchError when declared exceeds limit.
// A non-positive limit disables the check.
func CheckLength(field string, declared, limit int) error {
	if limit > 0 && declared > limit {
		return &LengthMismatchError{Field: field, Declared: declared, Limit: limit, Reason: "exceeds limit"}
	}
	return nil
}

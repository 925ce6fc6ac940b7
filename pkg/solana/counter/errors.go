package counter

// Custom program error codes. Anchor offsets user errors from 6000.
const (
	ErrorCodeCountUnderflow = 6000
	ErrorCodeCountOverflow  = 6001
)

package sol

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StrToLamports converts a string representation of SOL to the
// lamport value.
//
// An error is returned if the value string is invalid, or it cannot be
// accurately represented as lamports. For example, a value with more than
// nine decimal places, or a value that overflows a uint64.
func StrToLamports(val string) (uint64, error) {
	val = strings.TrimSpace(val)

	parts := strings.Split(val, ".")
	if len(parts) > 2 {
		return 0, errors.New("invalid sol value")
	}

	if len(parts[0]) > 11 {
		return 0, errors.New("value cannot be represented")
	}

	whole, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid whole component")
	}

	var fractional uint64
	if len(parts) == 2 {
		if len(parts[1]) == 0 || len(parts[1]) > Decimals {
			return 0, errors.New("value cannot be represented")
		}

		padded := fmt.Sprintf("%s%s", parts[1], strings.Repeat("0", Decimals-len(parts[1])))
		fractional, err = strconv.ParseUint(padded, 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "invalid decimal component")
		}
	}

	if whole > (math.MaxUint64-fractional)/LamportsPerSol {
		return 0, errors.New("value cannot be represented")
	}

	return whole*LamportsPerSol + fractional, nil
}

// MustStrToLamports calls StrToLamports, panicking if there's an error.
//
// This should only be used if you know for sure this will not panic.
func MustStrToLamports(val string) uint64 {
	result, err := StrToLamports(val)
	if err != nil {
		panic(err)
	}

	return result
}

// StrFromLamports converts an amount of lamports to the string
// representation of SOL.
func StrFromLamports(amount uint64) string {
	return fmt.Sprintf("%d.%09d", amount/LamportsPerSol, amount%LamportsPerSol)
}

// DisplayFromLamports renders lamports as SOL with trailing zeros removed,
// which is how balances are shown to users.
func DisplayFromLamports(amount uint64) string {
	s := strings.TrimRight(StrFromLamports(amount), "0")
	return strings.TrimSuffix(s, ".")
}

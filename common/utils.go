package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Deref returns the value behind p, or def when p is nil.
//
// Parameters:
//   - p: the optional value
//   - def: the fallback used when p is nil
//
// Returns:
//   - T: *p or def
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// AlignUp rounds n up to the next multiple of align. align must be a power of two.
//
// Parameters:
//   - n: the value to round
//   - align: the alignment, a power of two
//
// Returns:
//   - int: the smallest multiple of align that is >= n
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// PadTo4 returns data zero-padded to a multiple of 4 bytes.
// The input is returned as-is when it is already aligned.
//
// Parameters:
//   - data: the bytes to pad
//
// Returns:
//   - []byte: data, or a padded copy of it
func PadTo4(data []byte) []byte {
	aligned := AlignUp(len(data), 4)
	if aligned == len(data) {
		return data
	}
	out := make([]byte, aligned)
	copy(out, data)
	return out
}

package utils

// UniqueUint removes duplicate values from a slice of uints.
func UniqueUint(slice []uint) []uint {
	keys := make(map[uint]bool)
	list := []uint{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// ContainsUint reports whether v is present in slice.
func ContainsUint(slice []uint, v uint) bool {
	for _, entry := range slice {
		if entry == v {
			return true
		}
	}
	return false
}

// AddToSetUint appends each value not already present, keeping insertion order.
func AddToSetUint(slice []uint, values ...uint) []uint {
	out := append([]uint{}, slice...)
	for _, v := range values {
		if !ContainsUint(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// PullUint removes every occurrence of the given values. Absent values are ignored.
func PullUint(slice []uint, values ...uint) []uint {
	out := make([]uint, 0, len(slice))
	for _, entry := range slice {
		if !ContainsUint(values, entry) {
			out = append(out, entry)
		}
	}
	return out
}

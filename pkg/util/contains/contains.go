package contains

func String(slice []string, s string) bool {
	for _, elem := range slice {
		if elem == s {
			return true
		}
	}
	return false
}

// Strings reports whether every element of sub is in slice.
func Strings(slice []string, sub []string) bool {
	for _, s := range sub {
		if !String(slice, s) {
			return false
		}
	}
	return true
}

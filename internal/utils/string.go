package utils

// TruncateString keeps borderSizeToKeep characters on each side of str and
// replaces the middle with "...", so identifiers can be logged without leaking
// the full value.
func TruncateString(str string, borderSizeToKeep int) string {
	if len(str) <= 2*borderSizeToKeep {
		return str
	}
	return str[:borderSizeToKeep] + "..." + str[len(str)-borderSizeToKeep:]
}

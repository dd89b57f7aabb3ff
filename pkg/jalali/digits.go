package jalali

import "strings"

// NormalizeDigits converts Persian (۰-۹) and Arabic-Indic (٠-٩) digits to
// Latin digits and leaves every other rune unchanged.
func NormalizeDigits(input string) string {
	var result strings.Builder
	result.Grow(len(input))
	for _, char := range input {
		switch {
		case char >= '۰' && char <= '۹':
			result.WriteRune('0' + (char - '۰'))
		case char >= '٠' && char <= '٩':
			result.WriteRune('0' + (char - '٠'))
		default:
			result.WriteRune(char)
		}
	}
	return result.String()
}

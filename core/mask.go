package core

// MaskPhone keeps the first two and last two characters of phone and
// redacts the rest. Values shorter than four characters are fully hidden.
func MaskPhone(phone string) string {
	r := []rune(phone)
	if len(r) < 4 {
		return "***"
	}
	return string(r[:2]) + "****" + string(r[len(r)-2:])
}

package discovery

import "strings"

// Classify maps a device's bus protocol and media name to a
// DeviceType. Pure token matching, no OS access.
func Classify(protocol, mediaName string) DeviceType {
	tokens := tokenize(mediaName)

	switch {
	case hasAny(tokens, "sd", "sdhc", "sdxc", "microsd", "card", "mmc"):
		return TypeSDCard
	case hasAny(tokens, "ssd", "solid"):
		return TypeExternalSSD
	case hasAny(tokens, "hdd", "hard"):
		return TypeExternalHDD
	}

	if strings.EqualFold(strings.TrimSpace(protocol), "usb") {
		return TypeUSBDrive
	}
	return TypeUnknown
}

// tokenize lowercases and splits on anything that is not a letter or
// digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		return !isAlnum
	})
}

func hasAny(tokens []string, wanted ...string) bool {
	for _, tok := range tokens {
		for _, w := range wanted {
			if tok == w {
				return true
			}
		}
	}
	return false
}

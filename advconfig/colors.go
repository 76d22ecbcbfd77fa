package advconfig

import (
	"strings"
	"unicode"
)

// ColorChar prefixes formatting codes in chat messages.
const ColorChar = '§'

const colorCodes = "0123456789AaBbCcDdEeFfKkLlMmNnOoRrXx"

// TranslateColorCodes replaces every alt character followed by a valid
// formatting code with ColorChar and the lower-cased code, so "&aHi" becomes "§aHi".
func TranslateColorCodes(alt rune, text string) string {
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if runes[i] == alt && strings.ContainsRune(colorCodes, runes[i+1]) {
			runes[i] = ColorChar
			runes[i+1] = unicode.ToLower(runes[i+1])
		}
	}
	return string(runes)
}

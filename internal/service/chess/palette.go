package chess

import (
	"sort"
	"strings"
)

// mIRC colour names in code order (white=00 ... light_gray=15).
var colorNames = []string{
	"white",
	"black",
	"navy",
	"green",
	"red",
	"maroon",
	"purple",
	"orange",
	"yellow",
	"light_green",
	"teal",
	"cyan",
	"blue",
	"pink",
	"gray",
	"light_gray",
}

// ColorNames lists the colour names accepted by the colors command.
func ColorNames() []string {
	return append([]string(nil), colorNames...)
}

// ColorCode returns the two-digit mIRC code for a colour name.
func ColorCode(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, c := range colorNames {
		if c == n {
			return twoDigits(i), true
		}
	}
	return "", false
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + i/10), byte('0' + i%10)})
}

// ColorPreset is a named fg/bg pair selectable with "colors <preset>".
type ColorPreset struct {
	FG [2]string
	BG [2]string
}

var colorPresets = map[string]ColorPreset{
	"classic": {FG: [2]string{"white", "black"}, BG: [2]string{"maroon", "gray"}},
	"modern":  {FG: [2]string{"white", "yellow"}, BG: [2]string{"purple", "red"}},
}

// LookupPreset resolves "classic" or "modern".
func LookupPreset(name string) (ColorPreset, bool) {
	p, ok := colorPresets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// PresetNames lists the colour presets, sorted.
func PresetNames() []string {
	out := make([]string, 0, len(colorPresets))
	for name := range colorPresets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Labels are the file-letter rows selectable with "label <n>" (1-based).
var Labels = []string{
	"   A  B  C  D  E  F  G  H   ",
	"     A   B   C   D   E   F   G   H  ",
	"    A     B     C    D     E     F     G     H",
}

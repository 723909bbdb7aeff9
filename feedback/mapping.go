package feedback

import (
	"github.com/mcbrc/rcrx/protocol"
)

// Icons shown for pairing indications.
var (
	IconHappy = mustParseImage(`
		. . . . .
		. # . # .
		. . . . .
		# . . . #
		. # # # .`)
	IconPitchfork = mustParseImage(`
		# . # . #
		# . # . #
		# # # # #
		. . # . .
		. . # . .`)
	IconUnknown = mustParseImage(`
		. # # # .
		. . . # .
		. . # # .
		. . . . .
		. . # . .`)
	IconNeutral = mustParseImage(`
		. . . . .
		. . . . .
		. . # . .
		. . . . .
		. . . . .`)
)

// defaultImages covers the eight arrows, the neutral key and the button
// letters of the stock controller.
var defaultImages = map[string]Image{
	protocol.NeutralKey: IconNeutral,
	"0": mustParseImage(`
		. . # . .
		. . . # .
		# # # # #
		. . . # .
		. . # . .`),
	"1": mustParseImage(`
		. . # # #
		. . . # #
		. . # . #
		. # . . .
		# . . . .`),
	"2": mustParseImage(`
		. . # . .
		. # # # .
		# . # . #
		. . # . .
		. . # . .`),
	"3": mustParseImage(`
		# # # . .
		# # . . .
		# . # . .
		. . . # .
		. . . . #`),
	"4": mustParseImage(`
		. . # . .
		. # . . .
		# # # # #
		. # . . .
		. . # . .`),
	"5": mustParseImage(`
		. . . . #
		. . . # .
		# . # . .
		# # . . .
		# # # . .`),
	"6": mustParseImage(`
		. . # . .
		. . # . .
		# . # . #
		. # # # .
		. . # . .`),
	"7": mustParseImage(`
		# . . . .
		. # . . .
		. . # . #
		. . . # #
		. . # # #`),
	"A": mustParseImage(`
		. # # . .
		# . . # .
		# # # # .
		# . . # .
		# . . # .`),
	"B": mustParseImage(`
		# # # . .
		# . . # .
		# # # . .
		# . . # .
		# # # . .`),
	"C": mustParseImage(`
		. # # # .
		# . . . .
		# . . . .
		# . . . .
		. # # # .`),
	"D": mustParseImage(`
		# # # . .
		# . . # .
		# . . # .
		# . . # .
		# # # . .`),
	"E": mustParseImage(`
		# # # # .
		# . . . .
		# # # . .
		# . . . .
		# # # # .`),
	"F": mustParseImage(`
		# # # # .
		# . . . .
		# # # . .
		# . . . .
		# . . . .`),
	"P": mustParseImage(`
		# # # . .
		# . . # .
		# # # . .
		# . . . .
		# . . . .`),
	"L": mustParseImage(`
		# . . . .
		# . . . .
		# . . . .
		# . . . .
		# # # # .`),
}

// DefaultImageMapping returns the stock image for key, or IconUnknown.
func DefaultImageMapping(key string) Image {
	if img, ok := defaultImages[key]; ok {
		return img
	}
	return IconUnknown
}

// TableMapping resolves keys from table and falls back to fallback (or
// DefaultImageMapping when nil) for anything missing.
func TableMapping(table map[string]Image, fallback ImageMapping) ImageMapping {
	if fallback == nil {
		fallback = DefaultImageMapping
	}
	t := make(map[string]Image, len(table))
	for k, v := range table {
		t[k] = v
	}
	return func(key string) Image {
		if img, ok := t[key]; ok {
			return img
		}
		return fallback(key)
	}
}

// IndicationImage is the icon shown for a pairing indication.
func IndicationImage(ind Indication) Image {
	switch ind {
	case IndicationPairedSuccess:
		return IconHappy
	case IndicationSearching, IndicationConnected:
		return IconPitchfork
	default:
		return IconUnknown
	}
}

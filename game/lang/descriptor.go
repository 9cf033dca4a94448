package lang

import (
	"regexp"
	"strings"
)

// Weighted is the forward entry of one display character
type Weighted struct {
	Seq    string  `json:"seq"`
	Weight float64 `json:"weight"`
}

// Descriptor defines a language
type Descriptor struct {
	ID          string
	DisplayName string
	// Alphabet must match every sequence in full
	Alphabet *regexp.Regexp
	Forward  map[string]Weighted
}

// Info summarizes a descriptor for listings
type Info struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Characters  int    `json:"characters"`
}

// Info returns the listing summary of d
func (d Descriptor) Info() Info {
	return Info{ID: d.ID, DisplayName: d.DisplayName, Characters: len(d.Forward)}
}

const (
	EnglishLower = "engl-low"
	EnglishCased = "engl-cased"
	Numpad       = "numpad"
	Morse        = "morse"
	Hiragana     = "hiragana"
)

// Builtins lists the built-in language ids in a stable order
func Builtins() []string {
	return []string{EnglishLower, EnglishCased, Numpad, Morse, Hiragana}
}

// Builtin returns the built-in descriptor with the given id.
func Builtin(id string) (Descriptor, bool) {
	switch id {
	case EnglishLower:
		return Descriptor{
			ID:          EnglishLower,
			DisplayName: "English (lowercase)",
			Alphabet:    regexp.MustCompile(`^[a-z]+$`),
			Forward:     englishForward(false),
		}, true
	case EnglishCased:
		return Descriptor{
			ID:          EnglishCased,
			DisplayName: "English (mixed case)",
			Alphabet:    regexp.MustCompile(`^[a-zA-Z]+$`),
			Forward:     englishForward(true),
		}, true
	case Numpad:
		fwd := make(map[string]Weighted, 10)
		for d := '0'; d <= '9'; d++ {
			fwd[string(d)] = Weighted{Seq: string(d), Weight: 1}
		}
		return Descriptor{
			ID:          Numpad,
			DisplayName: "Number pad",
			Alphabet:    regexp.MustCompile(`^[0-9]+$`),
			Forward:     fwd,
		}, true
	case Morse:
		fwd := make(map[string]Weighted, len(morseCodes))
		for ch, code := range morseCodes {
			fwd[strings.ToUpper(ch)] = Weighted{Seq: code, Weight: englishFrequency[ch]}
		}
		return Descriptor{
			ID:          Morse,
			DisplayName: "Morse code",
			Alphabet:    regexp.MustCompile(`^[.\-]+$`),
			Forward:     fwd,
		}, true
	case Hiragana:
		fwd := make(map[string]Weighted, len(kanaRomaji))
		for kana, romaji := range kanaRomaji {
			fwd[kana] = Weighted{Seq: romaji, Weight: 1}
		}
		return Descriptor{
			ID:          Hiragana,
			DisplayName: "Hiragana (romaji)",
			Alphabet:    regexp.MustCompile(`^[a-z]+$`),
			Forward:     fwd,
		}, true
	}
	return Descriptor{}, false
}

// BuiltinInfos lists every built-in language summary
func BuiltinInfos() []Info {
	ids := Builtins()
	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		d, _ := Builtin(id)
		out = append(out, d.Info())
	}
	return out
}

// englishFrequency is the relative frequency (percent) of letters in English text
var englishFrequency = map[string]float64{
	"a": 8.2, "b": 1.5, "c": 2.8, "d": 4.3, "e": 12.7, "f": 2.2, "g": 2.0,
	"h": 6.1, "i": 7.0, "j": 0.15, "k": 0.77, "l": 4.0, "m": 2.4, "n": 6.7,
	"o": 7.5, "p": 1.9, "q": 0.095, "r": 6.0, "s": 6.3, "t": 9.1, "u": 2.8,
	"v": 0.98, "w": 2.4, "x": 0.15, "y": 2.0, "z": 0.074,
}

func englishForward(cased bool) map[string]Weighted {
	fwd := make(map[string]Weighted, 52)
	for ch, w := range englishFrequency {
		fwd[ch] = Weighted{Seq: ch, Weight: w}
		if cased {
			up := strings.ToUpper(ch)
			fwd[up] = Weighted{Seq: up, Weight: w / 10}
		}
	}
	return fwd
}

var morseCodes = map[string]string{
	"a": ".-", "b": "-...", "c": "-.-.", "d": "-..", "e": ".", "f": "..-.",
	"g": "--.", "h": "....", "i": "..", "j": ".---", "k": "-.-", "l": ".-..",
	"m": "--", "n": "-.", "o": "---", "p": ".--.", "q": "--.-", "r": ".-.",
	"s": "...", "t": "-", "u": "..-", "v": "...-", "w": ".--", "x": "-..-",
	"y": "-.--", "z": "--..",
}

var kanaRomaji = map[string]string{
	"あ": "a", "い": "i", "う": "u", "え": "e", "お": "o",
	"か": "ka", "き": "ki", "く": "ku", "け": "ke", "こ": "ko",
	"さ": "sa", "し": "shi", "す": "su", "せ": "se", "そ": "so",
	"た": "ta", "ち": "chi", "つ": "tsu", "て": "te", "と": "to",
	"な": "na", "に": "ni", "ぬ": "nu", "ね": "ne", "の": "no",
	"は": "ha", "ひ": "hi", "ふ": "fu", "へ": "he", "ほ": "ho",
	"ま": "ma", "み": "mi", "む": "mu", "め": "me", "も": "mo",
	"や": "ya", "ゆ": "yu", "よ": "yo",
	"ら": "ra", "り": "ri", "る": "ru", "れ": "re", "ろ": "ro",
	"わ": "wa", "を": "wo", "ん": "n",
	"が": "ga", "ぎ": "gi", "ぐ": "gu", "げ": "ge", "ご": "go",
	"ざ": "za", "じ": "ji", "ず": "zu", "ぜ": "ze", "ぞ": "zo",
	"だ": "da", "で": "de", "ど": "do",
	"ば": "ba", "び": "bi", "ぶ": "bu", "べ": "be", "ぼ": "bo",
	"ぱ": "pa", "ぴ": "pi", "ぷ": "pu", "ぺ": "pe", "ぽ": "po",
}

package alert

import (
	"strings"
	"time"
)

// DefaultUnit is the length of one Morse dot.
const DefaultUnit = 100 * time.Millisecond

// Pulse is one buzzer activation followed by a silence.
type Pulse struct {
	On  time.Duration
	Off time.Duration
}

// Duration returns the total length of the pulse.
func (p Pulse) Duration() time.Duration { return p.On + p.Off }

var morseCode = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",

	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",

	'.': ".-.-.-", ',': "--..--", '?': "..--..", '/': "-..-.",
	'=': "-...-", '+': ".-.-.", '-': "-....-", '@': ".--.-.",
}

// MorseToPulses converts text to pulses with the standard Morse timing:
// a dot is one unit on, a dash three units, elements of a letter are separated
// by one unit, letters by three and words by seven.
//
// Letters are case-insensitive; characters without a Morse code are skipped.
// A unit <= 0 selects DefaultUnit.
func MorseToPulses(text string, unit time.Duration) []Pulse {
	if unit <= 0 {
		unit = DefaultUnit
	}

	words := strings.Fields(text)
	pulses := make([]Pulse, 0, len(text)*4)

	for wi, word := range words {
		letters := []rune(strings.ToUpper(word))
		for li, ch := range letters {
			code, ok := morseCode[ch]
			if !ok {
				continue
			}
			pulses = appendElements(pulses, code, unit)

			if li < len(letters)-1 && len(pulses) > 0 {
				last := &pulses[len(pulses)-1]
				last.Off = max(last.Off, 3*unit)
			}
		}

		if wi < len(words)-1 && len(pulses) > 0 {
			pulses[len(pulses)-1].Off += 7 * unit
		}
	}

	return pulses
}

// ElementsToPulses converts a raw element string such as ".-" or "..." to the
// pulses of a single letter.
func ElementsToPulses(elements string, unit time.Duration) []Pulse {
	if unit <= 0 {
		unit = DefaultUnit
	}

	return appendElements(nil, elements, unit)
}

// PatternPulses converts a pattern definition. A definition made only of dots
// and dashes is played as the raw elements of one letter, anything else is
// read as Morse text.
func PatternPulses(definition string, unit time.Duration) []Pulse {
	if isElements(definition) {
		return ElementsToPulses(definition, unit)
	}

	return MorseToPulses(definition, unit)
}

func appendElements(pulses []Pulse, code string, unit time.Duration) []Pulse {
	// count only valid elements so the final one gets no trailing gap
	n := strings.Count(code, ".") + strings.Count(code, "-")
	i := 0
	for _, sym := range code {
		var on time.Duration
		switch sym {
		case '.':
			on = unit
		case '-':
			on = 3 * unit
		default:
			continue
		}

		i++
		off := unit
		if i == n {
			off = 0
		}
		pulses = append(pulses, Pulse{On: on, Off: off})
	}

	return pulses
}

func isElements(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch != '.' && ch != '-' {
			return false
		}
	}

	return true
}

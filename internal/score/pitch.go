package score

import (
	"math"
	"strconv"
	"strings"
)

var semitoneOffsets = map[byte]int{
	'C': -9, 'D': -7, 'E': -5, 'F': -4, 'G': -2, 'A': 0, 'B': 2,
}

// pitchTable maps canonical names ("C4", "C#4", "Db4") to frequencies.
var pitchTable = buildPitchTable(0, 8)

func buildPitchTable(lowOctave, highOctave int) map[string]float64 {
	table := make(map[string]float64)
	for octave := lowOctave; octave <= highOctave; octave++ {
		for letter, offset := range semitoneOffsets {
			base := offset + (octave-4)*12
			oct := strconv.Itoa(octave)
			table[string(letter)+oct] = semitoneFreq(base)
			table[string(letter)+"#"+oct] = semitoneFreq(base + 1)
			table[string(letter)+"b"+oct] = semitoneFreq(base - 1)
		}
	}
	return table
}

func semitoneFreq(fromA4 int) float64 {
	return 440 * math.Pow(2, float64(fromA4)/12)
}

// Frequency looks up an equal-tempered pitch name (A4 = 440 Hz).
func Frequency(name string) (float64, bool) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return 0, false
	}
	key := strings.ToUpper(name[:1]) + name[1:]
	f, ok := pitchTable[key]
	return f, ok
}

// Transpose shifts a frequency by the given number of semitones.
func Transpose(freq float64, semitones int) float64 {
	if semitones == 0 {
		return freq
	}
	return freq * math.Pow(2, float64(semitones)/12)
}

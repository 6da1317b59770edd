package openai

import (
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// numberRe matches integers and decimals, with optional thousands separators.
var numberRe = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d+)?`)

// Degrade replaces every number in content by a random value between 90% and
// 110% of its rounded value that differs from the original by more than 5%.
// The number of decimals is preserved and zeros are left alone.
func Degrade(content string, rng *rand.Rand) string {
	return numberRe.ReplaceAllStringFunc(content, func(match string) string {
		num, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
		if err != nil || num == 0 {
			return match
		}

		decimals := 0
		if i := strings.IndexByte(match, '.'); i >= 0 {
			decimals = len(match) - i - 1
		}

		rounded := math.Round(num)
		lo, hi := rounded*0.9, rounded*1.1
		candidate := hi
		for i := 0; i < 100; i++ {
			v := rng.Float64()*(hi-lo) + lo
			if math.Abs((v-num)/num) > 0.05 {
				candidate = v
				break
			}
		}
		return strconv.FormatFloat(candidate, 'f', decimals, 64)
	})
}

package clock

import (
	"fmt"
	"time"
)

var hourWords = [...]string{
	"twelve", "one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "ten", "eleven",
}

var onesWords = [...]string{
	"", "one", "two", "three", "four", "five", "six", "seven",
	"eight", "nine", "ten", "eleven", "twelve", "thirteen",
	"fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
}

var tensWords = [...]string{"", "", "twenty", "thirty", "forty", "fifty"}

// SpokenTime renders t as the English phrase the announcer speaks.
// Quarter and half boundaries use the traditional forms ("quarter past",
// "half past", "quarter to"); everything else reads the digits.
func SpokenTime(t time.Time) string {
	hour := t.Hour() % 12
	minute := t.Minute()

	switch minute {
	case 0:
		return fmt.Sprintf("It is %s o'clock", hourWords[hour])
	case 15:
		return fmt.Sprintf("It is quarter past %s", hourWords[hour])
	case 30:
		return fmt.Sprintf("It is half past %s", hourWords[hour])
	case 45:
		return fmt.Sprintf("It is quarter to %s", hourWords[(hour+1)%12])
	}
	return fmt.Sprintf("It is %s %s", hourWords[hour], minuteWords(minute))
}

func minuteWords(m int) string {
	switch {
	case m < 10:
		return "oh " + onesWords[m]
	case m < 20:
		return onesWords[m]
	case m%10 == 0:
		return tensWords[m/10]
	default:
		return tensWords[m/10] + " " + onesWords[m%10]
	}
}

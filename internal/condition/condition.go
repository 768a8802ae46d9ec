// Package condition maps Yandex.Weather condition codes onto the fixed set of
// entity condition classes.
package condition

// conditionClasses maps each entity condition class to the upstream codes it
// covers. Codes not listed here resolve to the empty class.
var conditionClasses = map[string][]string{
	"sunny":           {"clear"},
	"partlycloudy":    {"partly-cloudy"},
	"cloudy":          {"cloudy", "overcast"},
	"pouring":         {"heavy-rain", "continuous-heavy-rain", "showers", "hail"},
	"rainy":           {"drizzle", "light-rain", "rain", "moderate-rain"},
	"lightning-rainy": {"thunderstorm", "thunderstorm-with-rain", "thunderstorm-with-hail"},
	"snowy-rainy":     {"wet-snow"},
	"snowy":           {"light-snow", "snow", "snow-showers"},
}

// byCode is the inverted lookup built once at init.
var byCode = func() map[string]string {
	m := make(map[string]string)
	for class, codes := range conditionClasses {
		for _, code := range codes {
			m[code] = class
		}
	}
	return m
}()

// Map returns the condition class for an upstream condition code,
// or "" when the code is unrecognized.
func Map(code string) string {
	return byCode[code]
}

package condition

import "testing"

func TestMap(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "clear maps to sunny", code: "clear", want: "sunny"},
		{name: "partly cloudy", code: "partly-cloudy", want: "partlycloudy"},
		{name: "cloudy", code: "cloudy", want: "cloudy"},
		{name: "overcast maps to cloudy", code: "overcast", want: "cloudy"},
		{name: "heavy rain maps to pouring", code: "heavy-rain", want: "pouring"},
		{name: "continuous heavy rain maps to pouring", code: "continuous-heavy-rain", want: "pouring"},
		{name: "showers map to pouring", code: "showers", want: "pouring"},
		{name: "hail maps to pouring", code: "hail", want: "pouring"},
		{name: "drizzle maps to rainy", code: "drizzle", want: "rainy"},
		{name: "light rain maps to rainy", code: "light-rain", want: "rainy"},
		{name: "rain maps to rainy", code: "rain", want: "rainy"},
		{name: "moderate rain maps to rainy", code: "moderate-rain", want: "rainy"},
		{name: "thunderstorm", code: "thunderstorm", want: "lightning-rainy"},
		{name: "thunderstorm with rain", code: "thunderstorm-with-rain", want: "lightning-rainy"},
		{name: "thunderstorm with hail", code: "thunderstorm-with-hail", want: "lightning-rainy"},
		{name: "wet snow", code: "wet-snow", want: "snowy-rainy"},
		{name: "light snow maps to snowy", code: "light-snow", want: "snowy"},
		{name: "snow maps to snowy", code: "snow", want: "snowy"},
		{name: "snow showers map to snowy", code: "snow-showers", want: "snowy"},
		{name: "unknown code maps to empty", code: "sharknado", want: ""},
		{name: "empty code maps to empty", code: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Map(tt.code); got != tt.want {
				t.Errorf("Map(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

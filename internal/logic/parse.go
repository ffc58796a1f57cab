package logic

import (
	"fmt"
	"strings"
)

func parseEnum[T ~string](kind, s string, all []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range all {
		if v == known {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, s)
}

// ParseGeoTag parses a geo tag name such as "cafe".
func ParseGeoTag(s string) (GeoTag, error) { return parseEnum("geo tag", s, GeoTags) }

// ParseTimeBand parses a time band name such as "night".
func ParseTimeBand(s string) (TimeBand, error) { return parseEnum("time band", s, TimeBands) }

// ParseWeather parses a weather name such as "rainy".
func ParseWeather(s string) (Weather, error) { return parseEnum("weather", s, Weathers) }

// ParseMotion parses a motion name such as "walking".
func ParseMotion(s string) (Motion, error) { return parseEnum("motion", s, Motions) }

// ParseScene parses a scene ID such as "cafe_stay".
func ParseScene(s string) (SceneID, error) { return parseEnum("scene", s, Scenes) }

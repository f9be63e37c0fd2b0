package geo

import "math"

// MaxLatitude is the Web Mercator latitude limit in degrees.
const MaxLatitude = 85.05112878

// MercatorX converts longitude in degrees to the Web Mercator X axis,
// mapping [-180, 180] to [-Pi, Pi].
func MercatorX(lon float64) float64 {
	return lon * (math.Pi / 180.0)
}

// MercatorY converts latitude in degrees to the Web Mercator Y axis.
// Latitudes beyond MaxLatitude are clamped, so the result stays in [-Pi, Pi].
func MercatorY(lat float64) float64 {
	if lat > MaxLatitude {
		lat = MaxLatitude
	} else if lat < -MaxLatitude {
		lat = -MaxLatitude
	}

	latRad := lat * (math.Pi / 180.0)
	return math.Log(math.Tan(math.Pi*0.25 + latRad*0.5))
}

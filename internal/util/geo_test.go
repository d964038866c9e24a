package util

import (
	"math"
	"testing"

	"helpmarket_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lisbonZone() *Zone {
	return NewZone(config.ZoneConfig{
		CenterLat: 38.7223,
		CenterLng: -9.1393,
		RadiusKm:  15,
		City:      "Lisboa",
		MinLat:    36.8,
		MaxLat:    42.2,
		MinLng:    -9.6,
		MaxLng:    -6.1,
	})
}

// northOf 返回正北方向 km 公里处的点（同经度时 haversine 距离精确等于纬度差弧长）
func northOf(p GeoPoint, km float64) GeoPoint {
	return GeoPoint{Lat: p.Lat + km/earthRadiusKm*180/math.Pi, Lng: p.Lng}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// 里斯本 -> 波尔图 约 274 km
	d := HaversineKm(38.7223, -9.1393, 41.1579, -8.6291)
	assert.InDelta(t, 274, d, 3)
	assert.Zero(t, HaversineKm(38.7223, -9.1393, 38.7223, -9.1393))
}

func TestZoneValidate(t *testing.T) {
	z := lisbonZone()

	tests := []struct {
		name  string
		point GeoPoint
		city  string
		want  error
	}{
		{"center", z.Center, "Lisboa", nil},
		{"just inside radius", northOf(z.Center, 14.99), "Lisboa", nil},
		{"just outside radius", northOf(z.Center, 15.01), "Lisboa", ErrOutsideZone},
		{"porto is in country but out of zone", GeoPoint{Lat: 41.1579, Lng: -8.6291}, "Lisboa", ErrOutsideZone},
		{"madrid is outside country", GeoPoint{Lat: 40.4168, Lng: -3.7038}, "Lisboa", ErrOutsideCountry},
		{"latitude out of range", GeoPoint{Lat: 91, Lng: 0}, "Lisboa", ErrInvalidCoordinates},
		{"longitude out of range", GeoPoint{Lat: 0, Lng: -181}, "Lisboa", ErrInvalidCoordinates},
		{"nan", GeoPoint{Lat: math.NaN(), Lng: -9.1}, "Lisboa", ErrInvalidCoordinates},
		{"infinite", GeoPoint{Lat: 38.7, Lng: math.Inf(-1)}, "Lisboa", ErrInvalidCoordinates},
		{"wrong city", z.Center, "Porto", ErrUnsupportedCity},
		{"empty city", z.Center, "", ErrUnsupportedCity},
		{"city case and accents ignored", z.Center, "  LISBÔA ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := z.Validate(tt.point, tt.city)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.True(t, IsGeoError(err))
		})
	}
}

func TestBoundingBox_ClampsNearPole(t *testing.T) {
	b := BoundingBox(GeoPoint{Lat: 89.99, Lng: 0}, 50)
	assert.Equal(t, 90.0, b.MaxLat)
	assert.Equal(t, -180.0, b.MinLng)
	assert.Equal(t, 180.0, b.MaxLng)
}

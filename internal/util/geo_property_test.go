package util

import (
	"testing"

	"pgregory.net/rapid"
)

func drawPoint(t *rapid.T, label string) GeoPoint {
	return GeoPoint{
		Lat: rapid.Float64Range(-89, 89).Draw(t, label+"Lat"),
		Lng: rapid.Float64Range(-179, 179).Draw(t, label+"Lng"),
	}
}

// 距离对称、非负，且同一点距离为 0
func TestProperty_Haversine_Metric(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := drawPoint(rt, "a")
		b := drawPoint(rt, "b")

		ab := HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
		ba := HaversineKm(b.Lat, b.Lng, a.Lat, a.Lng)

		if ab < 0 {
			rt.Fatalf("negative distance %v", ab)
		}
		if diff := ab - ba; diff > 1e-9 || diff < -1e-9 {
			rt.Fatalf("distance not symmetric: %v vs %v", ab, ba)
		}
		if d := HaversineKm(a.Lat, a.Lng, a.Lat, a.Lng); d != 0 {
			rt.Fatalf("distance to self is %v", d)
		}
	})
}

// 半径内的点一定落在外接矩形里，搜索预过滤不会漏掉结果
func TestProperty_BoundingBox_ContainsRadius(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		center := GeoPoint{
			Lat: rapid.Float64Range(-60, 60).Draw(rt, "centerLat"),
			Lng: rapid.Float64Range(-170, 170).Draw(rt, "centerLng"),
		}
		radius := rapid.Float64Range(0.1, 200).Draw(rt, "radius")
		p := GeoPoint{
			Lat: center.Lat + rapid.Float64Range(-2, 2).Draw(rt, "dLat"),
			Lng: center.Lng + rapid.Float64Range(-2, 2).Draw(rt, "dLng"),
		}

		if HaversineKm(center.Lat, center.Lng, p.Lat, p.Lng) > radius {
			return
		}
		if !BoundingBox(center, radius).Contains(p) {
			rt.Fatalf("point %+v within %v km of %+v is outside its bounding box", p, radius, center)
		}
	})
}

// 在国家边界内时，结果只取决于到中心的距离
func TestProperty_ZoneValidate_AgreesWithDistance(t *testing.T) {
	z := lisbonZone()

	rapid.Check(t, func(rt *rapid.T) {
		p := GeoPoint{
			Lat: rapid.Float64Range(z.Country.MinLat, z.Country.MaxLat).Draw(rt, "lat"),
			Lng: rapid.Float64Range(z.Country.MinLng, z.Country.MaxLng).Draw(rt, "lng"),
		}

		err := z.Validate(p, z.City)
		inside := z.DistanceKm(p) <= z.RadiusKm

		if inside && err != nil {
			rt.Fatalf("point %+v inside zone rejected: %v", p, err)
		}
		if !inside && err != ErrOutsideZone {
			rt.Fatalf("point %+v outside zone got %v", p, err)
		}
	})
}

func TestProperty_ZoneValidate_InvalidLatitude(t *testing.T) {
	z := lisbonZone()

	rapid.Check(t, func(rt *rapid.T) {
		lat := rapid.OneOf(
			rapid.Float64Range(90.0001, 1e6),
			rapid.Float64Range(-1e6, -90.0001),
		).Draw(rt, "lat")

		if err := z.Validate(GeoPoint{Lat: lat, Lng: -9.1}, z.City); err != ErrInvalidCoordinates {
			rt.Fatalf("latitude %v: expected invalid coordinates, got %v", lat, err)
		}
	})
}

package util

import (
	"errors"
	"helpmarket_backend/internal/config"
	"math"
	"strings"
	"sync/atomic"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const earthRadiusKm = 6371.0

var (
	ErrInvalidCoordinates = Rejected("coordenadas inválidas")
	ErrOutsideCountry     = Rejected("a localização está fora do país suportado")
	ErrOutsideZone        = Rejected("a localização está fora da zona de operação")
	ErrUnsupportedCity    = Rejected("cidade não suportada")
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox 经纬度矩形
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (b BBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// HaversineKm 两点间大圆距离（公里）
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// BoundingBox 以 center 为中心、radiusKm 为半径的外接矩形，用于 SQL 预过滤
func BoundingBox(center GeoPoint, radiusKm float64) BBox {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	dLng := 180.0
	if cosLat > 1e-9 {
		dLng = math.Min(180, dLat/cosLat)
	}
	return BBox{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: math.Max(-180, center.Lng-dLng),
		MaxLng: math.Min(180, center.Lng+dLng),
	}
}

func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Zone 运营区域
type Zone struct {
	Center   GeoPoint
	RadiusKm float64
	City     string
	Country  BBox
}

func NewZone(cfg config.ZoneConfig) *Zone {
	return &Zone{
		Center:   GeoPoint{Lat: cfg.CenterLat, Lng: cfg.CenterLng},
		RadiusKm: cfg.RadiusKm,
		City:     cfg.City,
		Country: BBox{
			MinLat: cfg.MinLat,
			MaxLat: cfg.MaxLat,
			MinLng: cfg.MinLng,
			MaxLng: cfg.MaxLng,
		},
	}
}

func (z *Zone) DistanceKm(p GeoPoint) float64 {
	return HaversineKm(z.Center.Lat, z.Center.Lng, p.Lat, p.Lng)
}

// Validate 校验坐标与城市，顺序：坐标合法性 -> 国家边界 -> 半径 -> 城市
func (z *Zone) Validate(p GeoPoint, city string) error {
	if !p.Valid() {
		return ErrInvalidCoordinates
	}
	if !z.Country.Contains(p) {
		return ErrOutsideCountry
	}
	if z.DistanceKm(p) > z.RadiusKm {
		return ErrOutsideZone
	}
	if !SameCity(city, z.City) {
		return ErrUnsupportedCity
	}
	return nil
}

// ZoneHolder 当前生效的运营区域，配置热更新时整体替换
type ZoneHolder struct {
	p atomic.Pointer[Zone]
}

func NewZoneHolder(z *Zone) *ZoneHolder {
	h := &ZoneHolder{}
	h.p.Store(z)
	return h
}

func (h *ZoneHolder) Zone() *Zone {
	return h.p.Load()
}

func (h *ZoneHolder) Store(z *Zone) {
	h.p.Store(z)
}

// SameCity 忽略大小写、首尾空白和重音符号比较城市名
func SameCity(a, b string) bool {
	return foldCity(a) == foldCity(b)
}

func foldCity(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = strings.TrimSpace(s)
	}
	return strings.ToLower(folded)
}

// IsGeoError 是否为地理校验错误
func IsGeoError(err error) bool {
	return errors.Is(err, ErrInvalidCoordinates) ||
		errors.Is(err, ErrOutsideCountry) ||
		errors.Is(err, ErrOutsideZone) ||
		errors.Is(err, ErrUnsupportedCity)
}

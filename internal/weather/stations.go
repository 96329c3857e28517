package weather

import (
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Station is a weather station with its archive identifier and location.
type Station struct {
	ID       string
	Name     string
	Location geom.Coord // lon, lat in degrees
}

// StationIndex holds the known stations for nearest-station lookup.
type StationIndex struct {
	stations []Station
}

// LoadStations reads a point shapefile of stations. The dbf must carry a
// "station" attribute; "name" is optional.
func LoadStations(shpPath string) (*StationIndex, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "weather: open station shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idIdx, ok := fieldIdx["station"]
	if !ok {
		return nil, eris.New("weather: station shapefile missing 'station' attribute")
	}
	nameIdx, hasName := fieldIdx["name"]

	var stations []Station
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			skipped++
			continue
		}

		st := Station{
			ID:       id,
			Location: geom.Coord{point.X, point.Y},
		}
		if hasName {
			st.Name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}
		stations = append(stations, st)
	}

	if skipped > 0 {
		zap.L().Debug("weather: skipped station records", zap.Int("skipped", skipped))
	}
	if len(stations) == 0 {
		return nil, eris.New("weather: station shapefile has no usable points")
	}

	return &StationIndex{stations: stations}, nil
}

// Stations returns all loaded stations.
func (idx *StationIndex) Stations() []Station {
	return idx.stations
}

// Nearest returns the station closest to the given coordinate by
// great-circle distance.
func (idx *StationIndex) Nearest(lat, lon float64) Station {
	best := idx.stations[0]
	bestDist := math.Inf(1)
	for _, st := range idx.stations {
		d := haversineKM(lat, lon, st.Location.Y(), st.Location.X())
		if d < bestDist {
			bestDist = d
			best = st
		}
	}
	return best
}

const earthRadiusKM = 6371.0

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

package yourmap

import (
	"math/rand/v2"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DemoBound is the area random demo points are placed in.
var DemoBound = orb.Bound{
	Min: orb.Point{43.84, 56.24},
	Max: orb.Point{44.15, 56.37},
}

// DemoStatuses are the status values given to demo points.
var DemoStatuses = []string{
	"Created",
	"Under review",
	"Assigned",
	"In progress",
	"Closed",
	"Overdue",
}

// GenerateGeoJSON returns count random points inside DemoBound with an
// "id" and a "status" property. A nil rnd uses the global source.
func GenerateGeoJSON(count int, rnd *rand.Rand) *geojson.FeatureCollection {
	float := rand.Float64
	intN := rand.IntN
	if rnd != nil {
		float = rnd.Float64
		intN = rnd.IntN
	}

	fc := geojson.NewFeatureCollection()
	for i := 0; i < count; i++ {
		p := orb.Point{
			DemoBound.Min[0] + float()*(DemoBound.Max[0]-DemoBound.Min[0]),
			DemoBound.Min[1] + float()*(DemoBound.Max[1]-DemoBound.Min[1]),
		}
		f := geojson.NewFeature(p)
		f.Properties["id"] = i
		f.Properties["status"] = DemoStatuses[intN(len(DemoStatuses))]
		fc.Append(f)
	}
	return fc
}

// Package cluster groups point features into render-time cluster wrappers.
//
// Grouping is delegated to orb/maptile: points that fall in the same tile of
// a grid whose cells are roughly `distance` pixels wide at the view zoom are
// bundled together.
package cluster

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-map/internal/feature"
)

// DefaultDistance is the cell size in pixels.
const DefaultDistance = 25

const (
	tileSize   = 256
	maxZoom    = 28
	maxLatMerc = 85.05112878
)

// BucketZoom returns the tile zoom used to group points at view zoom.
func BucketZoom(zoom, distance float64) maptile.Zoom {
	if distance <= 0 {
		distance = DefaultDistance
	}
	z := math.Floor(zoom + math.Log2(tileSize/distance))
	switch {
	case z < 0:
		z = 0
	case z > maxZoom:
		z = maxZoom
	}
	return maptile.Zoom(z)
}

// Cluster wraps point features into cluster wrappers for the given view
// zoom. Every bucket yields one wrapper, including single-point buckets.
// Non-point features are returned unwrapped. Output order follows the first
// appearance of each bucket in features; members keep input order.
func Cluster(features []*feature.Feature, zoom, distance float64) []*feature.Feature {
	z := BucketZoom(zoom, distance)

	var (
		order   []maptile.Tile
		buckets = make(map[maptile.Tile][]*feature.Feature)
		out     []*feature.Feature
	)
	for _, f := range features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			out = append(out, f)
			continue
		}
		t := maptile.At(clampLat(p), z)
		if _, seen := buckets[t]; !seen {
			order = append(order, t)
		}
		buckets[t] = append(buckets[t], f)
	}

	for _, t := range order {
		members := buckets[t]
		out = append(out, feature.NewCluster(centroid(members), members))
	}
	return out
}

func clampLat(p orb.Point) orb.Point {
	p[1] = math.Max(-maxLatMerc, math.Min(maxLatMerc, p[1]))
	return p
}

func centroid(fs []*feature.Feature) orb.Point {
	var x, y float64
	for _, f := range fs {
		p := f.Geometry.(orb.Point)
		x += p[0]
		y += p[1]
	}
	n := float64(len(fs))
	return orb.Point{x / n, y / n}
}

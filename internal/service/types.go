// Package service contains business logic for the plat-map platform.
package service

import "github.com/joeblew999/plat-map/internal/style"

// LayerConfig represents a map layer configuration.
// Single source of truth: Huma reads tags for OpenAPI + validation,
// MapService turns it into a live yourmap layer.
type LayerConfig struct {
	ID         string          `json:"id,omitempty" doc:"Unique layer identifier" example:"incidents"`
	Name       string          `json:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Incidents"`
	Source     string          `json:"source,omitempty" doc:"GeoJSON source file name" example:"incidents.geojson"`
	Clustering bool            `json:"clustering" default:"true" doc:"Whether points are clustered"`
	Distance   float64         `json:"distance,omitempty" minimum:"0" maximum:"512" default:"25" doc:"Cluster cell size in pixels"`
	Order      int             `json:"order" default:"0" doc:"Draw order, higher is on top"`
	Visible    bool            `json:"visible" default:"true" doc:"Whether the layer is on the map"`
	Styles     style.LayerSpec `json:"styles,omitempty" doc:"Point and cluster styles"`
	Legend     []LegendItem    `json:"legend,omitempty" doc:"Legend entries for this layer"`
}

// LegendItem defines a legend entry.
type LegendItem struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

// SourceFile represents a source data file.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"incidents.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}

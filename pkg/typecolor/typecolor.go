// Package typecolor maps Pokemon type labels to their card display colors.
package typecolor

import "sort"

// Normal is the color of the "normal" type and the fallback for unknown labels.
const Normal = "#75525C"

var colors = map[string]string{
	"normal":   Normal,
	"fire":     "#F60001",
	"grass":    "#27CB50",
	"electric": "#E2E32B",
	"ice":      "#86D2F5",
	"water":    "#1552E1",
	"ground":   "#6E491F",
	"rock":     "#48190B",
	"fairy":    "#E31365",
	"poison":   "#9B69DA",
	"bug":      "#1C4B27",
	"ghost":    "#33336B",
	"dragon":   "#448A95",
	"steel":    "#60756E",
	"psychic":  "#A52A6C",
	"flying":   "#94B2C7",
	"dark":     "#595978",
	"fighting": "#EF6239",
}

// Color returns the hex color for a type label.
// Unknown or empty labels return Normal.
func Color(label string) string {
	if c, ok := colors[label]; ok {
		return c
	}
	return Normal
}

// Known reports whether label has a dedicated color.
func Known(label string) bool {
	_, ok := colors[label]
	return ok
}

// Labels returns all known type labels in sorted order.
func Labels() []string {
	labels := make([]string, 0, len(colors))
	for label := range colors {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

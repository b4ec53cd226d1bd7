package kml

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// Namespace URIs published for KML over the years.
var knownNamespaces = map[string]bool{
	"http://www.opengis.net/kml/2.2":  true,
	"http://earth.google.com/kml/2.2": true,
	"http://earth.google.com/kml/2.1": true,
	"http://earth.google.com/kml/2.0": true,
}

var markerTags = []string{"Placemark"}

// elementMatcher selects elements during a descendant walk.
type elementMatcher struct {
	name  string
	match func(e *etree.Element, local string) bool
}

// markerLookups are tried in order; the first one that finds any element wins.
var markerLookups = []elementMatcher{
	{"local-name", func(e *etree.Element, local string) bool {
		return e.Tag == local
	}},
	{"namespace-uri", func(e *etree.Element, local string) bool {
		return e.Tag == local && knownNamespaces[e.NamespaceURI()]
	}},
	{"any-namespace", func(e *etree.Element, local string) bool {
		return e.Tag == local && e.Space != ""
	}},
	{"no-namespace", func(e *etree.Element, local string) bool {
		return e.Tag == local && e.Space == "" && e.NamespaceURI() == ""
	}},
	{"case-insensitive", func(e *etree.Element, local string) bool {
		return strings.EqualFold(e.Tag, local)
	}},
}

// labelLookups resolve a marker's display name, first non-empty text wins.
var labelLookups = []elementMatcher{
	{"child-name", nil},
	{"descendant-name", func(e *etree.Element, local string) bool {
		return e.Tag == local
	}},
	{"namespaced-name", func(e *etree.Element, local string) bool {
		return e.Tag == local && knownNamespaces[e.NamespaceURI()]
	}},
}

// coordinatePaths are structural paths of local names, each step matched
// against descendants of the previous one. The first non-empty text wins.
var coordinatePaths = [][]string{
	{"Polygon", "outerBoundaryIs", "LinearRing", "coordinates"},
	{"Polygon", "coordinates"},
	{"LinearRing", "coordinates"},
	{"Point", "coordinates"},
	{"coordinates"},
}

// ExtractMarkers locates every boundary marker in doc and decodes its
// coordinates. Markers without a usable ring are reported in Rejected and do
// not stop the traversal. A document that is not well-formed XML fails with
// *domain.FormatError.
func ExtractMarkers(doc Document) (*domain.DocumentMarkers, error) {
	raw, err := FindRawMarkers(doc)
	if err != nil {
		return nil, err
	}

	res := &domain.DocumentMarkers{Archive: doc.Archive, Document: doc.Name}
	for i, m := range raw {
		idx := i + 1
		if m.CoordinateText == "" {
			res.Rejected = append(res.Rejected, domain.RejectedMarker{Index: idx, Label: m.Label, Reason: "no coordinates"})
			continue
		}
		ring, err := ParseCoordinates(m.CoordinateText)
		if err != nil {
			res.Rejected = append(res.Rejected, domain.RejectedMarker{Index: idx, Label: m.Label, Reason: err.Error()})
			continue
		}
		res.Markers = append(res.Markers, domain.Marker{Index: idx, Label: m.Label, Ring: ring})
	}
	return res, nil
}

// FindRawMarkers returns the label and raw coordinate text of every marker in
// doc, in document order, without decoding the coordinates.
func FindRawMarkers(doc Document) ([]domain.RawMarker, error) {
	root, err := parseTree(doc)
	if err != nil {
		return nil, err
	}

	markers := findMarkers(root)
	out := make([]domain.RawMarker, 0, len(markers))
	for i, pm := range markers {
		label := resolveLabel(pm)
		if label == "" {
			label = fmt.Sprintf("Polygon_%d", i+1)
		}
		out = append(out, domain.RawMarker{Label: label, CoordinateText: resolveCoordinates(pm)})
	}
	return out, nil
}

func parseTree(doc Document) (*etree.Element, error) {
	tree := etree.NewDocument()
	// Text is already UTF-8; ignore whatever the XML declaration claims.
	tree.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := tree.ReadFromString(doc.Text); err != nil {
		return nil, &domain.FormatError{Source: documentSource(doc), Reason: "parse markup", Err: err}
	}
	root := tree.Root()
	if root == nil {
		return nil, &domain.FormatError{Source: documentSource(doc), Reason: "empty document"}
	}
	return root, nil
}

func findMarkers(root *etree.Element) []*etree.Element {
	for _, lookup := range markerLookups {
		var found []*etree.Element
		for _, tag := range markerTags {
			if lookup.match(root, tag) {
				found = append(found, root)
			}
			found = append(found, descendants(root, tag, lookup.match)...)
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

func resolveLabel(pm *etree.Element) string {
	for _, lookup := range labelLookups {
		var candidates []*etree.Element
		if lookup.match == nil {
			for _, c := range pm.ChildElements() {
				if c.Tag == "name" {
					candidates = append(candidates, c)
				}
			}
		} else {
			candidates = descendants(pm, "name", lookup.match)
		}
		for _, c := range candidates {
			if text := strings.TrimSpace(c.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func resolveCoordinates(pm *etree.Element) string {
	for _, path := range coordinatePaths {
		for _, el := range followPath(pm, path) {
			if text := strings.TrimSpace(el.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// followPath walks path one step at a time, each step searching descendants
// by local name.
func followPath(start *etree.Element, path []string) []*etree.Element {
	current := []*etree.Element{start}
	for _, step := range path {
		var next []*etree.Element
		for _, e := range current {
			next = append(next, descendants(e, step, matchLocal)...)
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func matchLocal(e *etree.Element, local string) bool { return e.Tag == local }

// descendants returns every element below e, in document order, accepted by match.
func descendants(e *etree.Element, local string, match func(*etree.Element, string) bool) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if match(c, local) {
			out = append(out, c)
		}
		out = append(out, descendants(c, local, match)...)
	}
	return out
}

func documentSource(doc Document) string {
	if doc.Archive == "" {
		return doc.Name
	}
	return doc.Archive + "/" + doc.Name
}

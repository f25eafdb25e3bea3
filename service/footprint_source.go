package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/Tilak559/solar/utils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

const (
	FootprintSourceLocal = "local"
	FootprintSourceSTAC  = "stac"
)

// errNoFootprint is returned when no polygon contains the location.
var errNoFootprint = dataError("No building footprint contains the location")

// LocalFootprintSource answers point queries from per region GeoJSON files.
// Each file is loaded once into an R-tree over polygon bounding boxes.
type LocalFootprintSource struct {
	pathTemplate string

	mu      sync.Mutex
	indexes map[string]*footprintIndex
}

type footprintIndex struct {
	tree  rtree.RTreeG[orb.Polygon]
	count int
}

// NewLocalFootprintSource takes a path with a {region} placeholder, e.g.
// data/footprints/{region}.geojson.
func NewLocalFootprintSource(pathTemplate string) *LocalFootprintSource {
	return &LocalFootprintSource{
		pathTemplate: pathTemplate,
		indexes:      make(map[string]*footprintIndex),
	}
}

func (s *LocalFootprintSource) Name() string {
	return FootprintSourceLocal
}

// FindContaining returns the outer ring of the first footprint containing pt.
func (s *LocalFootprintSource) FindContaining(ctx context.Context, pt orb.Point, region string) (orb.Ring, error) {
	if region == "" {
		return nil, dataError("No region for footprint lookup")
	}
	idx, err := s.index(region)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ring := idx.find(pt)
	if ring == nil {
		return nil, errNoFootprint
	}
	return ring, nil
}

func (s *LocalFootprintSource) index(region string) (*footprintIndex, error) {
	key := regionSlug(region)

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.indexes[key]; ok {
		return idx, nil
	}

	path := strings.ReplaceAll(s.pathTemplate, "{region}", key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dataError(fmt.Sprintf("No footprint data for region %s", region))
		}
		return nil, internalError("read footprint file", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, internalError("parse footprint file", err)
	}

	idx := buildFootprintIndex(fc)
	s.indexes[key] = idx

	utils.Logger.Info("footprint index loaded",
		zap.String("region", region),
		zap.String("file", path),
		zap.Int("polygons", idx.count))
	return idx, nil
}

func buildFootprintIndex(fc *geojson.FeatureCollection) *footprintIndex {
	idx := &footprintIndex{}
	for _, f := range fc.Features {
		for _, poly := range polygonsOf(f.Geometry) {
			b := poly.Bound()
			idx.tree.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, poly)
			idx.count++
		}
	}
	return idx
}

func (idx *footprintIndex) find(pt orb.Point) orb.Ring {
	var found orb.Ring
	p := [2]float64{pt[0], pt[1]}
	idx.tree.Search(p, p, func(_, _ [2]float64, poly orb.Polygon) bool {
		if planar.PolygonContains(poly, pt) {
			found = poly[0]
			return false
		}
		return true
	})
	return found
}

// polygonsOf flattens the polygonal parts of a geometry.
func polygonsOf(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 {
			return []orb.Polygon{v}
		}
	case orb.MultiPolygon:
		out := make([]orb.Polygon, 0, len(v))
		for _, p := range v {
			if len(p) > 0 {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// regionSlug turns "New York" into "new_york" for file names.
func regionSlug(region string) string {
	return strings.Join(strings.Fields(strings.ToLower(region)), "_")
}

// STACFootprintSource searches a STAC API for footprint items intersecting
// the location and uses the first polygon that contains it.
type STACFootprintSource struct {
	httpClient *http.Client
	searchURL  string
	collection string
}

func NewSTACFootprintSource(baseURL, collection string, httpClient *http.Client) *STACFootprintSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &STACFootprintSource{
		httpClient: httpClient,
		searchURL:  strings.TrimRight(baseURL, "/") + "/search",
		collection: collection,
	}
}

func (s *STACFootprintSource) Name() string {
	return FootprintSourceSTAC
}

type stacSearch struct {
	Collections []string          `json:"collections"`
	Intersects  *geojson.Geometry `json:"intersects"`
	Limit       int               `json:"limit"`
}

// FindContaining ignores region; the STAC API is global.
func (s *STACFootprintSource) FindContaining(ctx context.Context, pt orb.Point, _ string) (orb.Ring, error) {
	body, err := json.Marshal(stacSearch{
		Collections: []string{s.collection},
		Intersects:  geojson.NewGeometry(pt),
		Limit:       10,
	})
	if err != nil {
		return nil, eris.Wrap(err, "encode stac search")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "build stac request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/geo+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "stac search")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp.StatusCode,
			fmt.Sprintf("Failed to retrieve data from STAC search: %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read stac response")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, internalError("parse stac response", err)
	}

	for _, f := range fc.Features {
		for _, poly := range polygonsOf(f.Geometry) {
			if planar.PolygonContains(poly, pt) {
				return poly[0], nil
			}
		}
	}
	return nil, errNoFootprint
}

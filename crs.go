package wkt2shp

import (
	"fmt"
	"strconv"
	"strings"
)

// CRS represents a coordinate reference system tag.
// Input is kept verbatim; Org, Code, Name and WKT are filled in when the tag
// is recognised.
type CRS struct {
	Input string // Tag as given by the caller
	Org   string // Authority (e.g., "EPSG")
	Code  int    // Authority code (e.g., 4326 for WGS84)
	Name  string // CRS name
	WKT   string // ESRI Well-Known Text written to the .prj sidecar
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return ParseCRS(DefaultCRS)
}

// ParseCRS interprets s as an authority code, an OGC URN or WKT. Strings
// it does not recognise are kept as an opaque tag.
func ParseCRS(s string) *CRS {
	c := &CRS{Input: s}
	trimmed := strings.TrimSpace(s)

	if isWKT(trimmed) {
		c.WKT = trimmed
		c.Name = wktName(trimmed)
		if code, ok := codeForWKT(trimmed); ok {
			c.Org, c.Code = "EPSG", code
			c.Name, _, _ = esriWKT(code)
		}
		return c
	}

	org, code, ok := splitAuthority(trimmed)
	if !ok {
		return c
	}
	c.Org, c.Code = org, code
	if org == "EPSG" {
		if name, wkt, ok := esriWKT(code); ok {
			c.Name, c.WKT = name, wkt
		}
	}
	return c
}

// CRSFromPRJ builds a CRS from the contents of a .prj sidecar. WKT that
// matches a known EPSG definition is reported by its code.
func CRSFromPRJ(text string) *CRS {
	c := ParseCRS(strings.TrimSpace(text))
	if c.Org != "" && c.Code > 0 {
		c.Input = c.String()
	}
	return c
}

// String returns "ORG:code" for a recognised authority code, else the
// original tag.
func (c *CRS) String() string {
	if c == nil {
		return ""
	}
	if c.Org != "" && c.Code > 0 {
		return fmt.Sprintf("%s:%d", c.Org, c.Code)
	}
	return c.Input
}

// PRJ returns the ESRI WKT stored in the .prj sidecar, or "" when the CRS
// has none. Authority codes outside the built-in table and opaque tags have
// no .prj.
func (c *CRS) PRJ() string {
	if c == nil {
		return ""
	}
	return c.WKT
}

// Known reports whether the CRS resolved to Well-Known Text.
func (c *CRS) Known() bool {
	return c != nil && c.WKT != ""
}

func isWKT(s string) bool {
	u := strings.ToUpper(s)
	for _, p := range []string{"GEOGCS[", "PROJCS[", "GEOGCRS[", "PROJCRS[", "COMPD_CS["} {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// splitAuthority accepts "EPSG:4326", "epsg:4326", "urn:ogc:def:crs:EPSG::4326"
// and a bare "4326".
func splitAuthority(s string) (string, int, bool) {
	if code, err := strconv.Atoi(s); err == nil && code > 0 {
		return "EPSG", code, true
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return "", 0, false
	}
	if strings.EqualFold(parts[0], "urn") {
		// urn:ogc:def:crs:<org>:<version>:<code>
		if len(parts) != 7 || !strings.EqualFold(parts[3], "crs") {
			return "", 0, false
		}
		parts = []string{parts[4], parts[6]}
	}
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, false
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code <= 0 {
		return "", 0, false
	}
	return strings.ToUpper(parts[0]), code, true
}

func wktName(wkt string) string {
	start := strings.IndexByte(wkt, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(wkt[start+1:], '"')
	if end < 0 {
		return ""
	}
	return wkt[start+1 : start+1+end]
}

const (
	gcsWGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	gcsNAD83 = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	gcsETRS  = `GEOGCS["GCS_ETRS_1989",DATUM["D_ETRS_1989",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

	webMercator = `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",` + gcsWGS84 +
		`,PROJECTION["Mercator_Auxiliary_Sphere"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],` +
		`PARAMETER["Central_Meridian",0.0],PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`
)

var knownCRS = map[int]struct{ name, wkt string }{
	4326: {"WGS 84", gcsWGS84},
	4269: {"NAD83", gcsNAD83},
	4258: {"ETRS89", gcsETRS},
	3857: {"WGS 84 / Pseudo-Mercator", webMercator},
}

// esriWKT returns the name and .prj text for an EPSG code.
func esriWKT(code int) (string, string, bool) {
	if k, ok := knownCRS[code]; ok {
		return k.name, k.wkt, true
	}

	// WGS 84 / UTM zones
	var zone int
	var hemi string
	switch {
	case code >= 32601 && code <= 32660:
		zone, hemi = code-32600, "N"
	case code >= 32701 && code <= 32760:
		zone, hemi = code-32700, "S"
	default:
		return "", "", false
	}

	falseNorthing := "0.0"
	if hemi == "S" {
		falseNorthing = "10000000.0"
	}
	wkt := fmt.Sprintf(`PROJCS["WGS_1984_UTM_Zone_%d%s",%s,PROJECTION["Transverse_Mercator"],`+
		`PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",%s],PARAMETER["Central_Meridian",%s],`+
		`PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`,
		zone, hemi, gcsWGS84, falseNorthing, strconv.FormatFloat(float64(-183+6*zone), 'f', 1, 64))

	return fmt.Sprintf("WGS 84 / UTM zone %d%s", zone, hemi), wkt, true
}

// codeForWKT finds the EPSG code whose ESRI WKT equals wkt.
func codeForWKT(wkt string) (int, bool) {
	for code, k := range knownCRS {
		if k.wkt == wkt {
			return code, true
		}
	}
	for _, base := range []int{32600, 32700} {
		for zone := 1; zone <= 60; zone++ {
			if _, w, _ := esriWKT(base + zone); w == wkt {
				return base + zone, true
			}
		}
	}
	return 0, false
}

package methods

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var epsgAuthority = regexp.MustCompile(`(?i)AUTHORITY\[\s*"EPSG"\s*,\s*"(\d+)"\s*\]`)

// ESRI-flavoured WKT carries no AUTHORITY node, so a name lookup is the
// fallback. Longer, more specific tokens first.
var wellKnownCrs = []struct {
	token string
	epsg  int
}{
	{"WGS_1984_Web_Mercator_Auxiliary_Sphere", 3857},
	{"WGS 84 / Pseudo-Mercator", 3857},
	{"Pseudo-Mercator", 3857},
	{"GCS_China_Geodetic_Coordinate_System_2000", 4490},
	{"China Geodetic Coordinate System 2000", 4490},
	{"CGCS2000", 4490},
	{"GCS_North_American_1983", 4269},
	{"NAD_1983", 4269},
	{"GCS_WGS_1984", 4326},
	{"WGS_1984", 4326},
	{"WGS 84", 4326},
}

// DetectSrid reads the EPSG code out of .prj WKT text. The AUTHORITY tag is
// authoritative; the well-known-name table only catches WKT variants that
// omit it. No default is assumed: an undetectable CRS fails the ingestion.
func DetectSrid(prjContent string) (int, error) {
	if m := epsgAuthority.FindStringSubmatch(prjContent); m != nil {
		if code, err := strconv.Atoi(m[1]); err == nil {
			return code, nil
		}
	}
	for _, wk := range wellKnownCrs {
		if strings.Contains(prjContent, wk.token) {
			return wk.epsg, nil
		}
	}
	return 0, fmt.Errorf("%w: no EPSG code in projection text", ErrUnknownCrs)
}

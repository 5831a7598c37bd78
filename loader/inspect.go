package loader

import (
	"log"
	"os/exec"
	"strconv"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
)

// OgrInfoInspector asks ogrinfo for the layer's feature count. When ogrinfo
// is missing or its output is unusable it reads the .shp directly instead;
// only if both fail does the count come back unknown.
type OgrInfoInspector struct {
	Binary string // defaults to "ogrinfo"
}

func (i *OgrInfoInspector) CountFeatures(shpPath string) int {
	bin := i.Binary
	if bin == "" {
		bin = "ogrinfo"
	}
	if path, err := exec.LookPath(bin); err == nil {
		if n, ok := countWithOgrInfo(path, shpPath); ok {
			return n
		}
	} else {
		log.Printf("%s not available, counting features from the shapefile", bin)
	}
	return countWithShpReader(shpPath)
}

func countWithOgrInfo(bin string, shpPath string) (int, bool) {
	out, err := exec.Command(bin, "-so", "-al", shpPath).Output()
	if err != nil {
		log.Printf("ogrinfo failed on %s: %v", shpPath, err)
		return 0, false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "Feature Count") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			return n, true
		}
	}
	return 0, false
}

func countWithShpReader(shpPath string) int {
	shape, err := shp.Open(shpPath)
	if err != nil {
		log.Printf("could not read %s for feature count: %v", shpPath, err)
		return -1
	}
	defer shape.Close()

	count := 0
	for shape.Next() {
		count++
	}
	return count
}

package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/GrainArc/ShpToAPI/methods"
)

// OgrLoader shells out to ogr2ogr. It is the only place in the system that
// runs the converter.
type OgrLoader struct {
	Binary string // defaults to "ogr2ogr"
}

func (l *OgrLoader) Load(ctx context.Context, shpPath string, pgDSN string, schema string, table string, sourceSrid int) error {
	bin := l.Binary
	if bin == "" {
		bin = "ogr2ogr"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH", methods.ErrLoaderUnavailable, bin)
	}
	target, err := methods.BuildFullTable(schema, table)
	if err != nil {
		return err
	}

	args := []string{
		"-f", "PostgreSQL",
		"PG:" + pgDSN,
		shpPath,
		"-nln", target,
		"-lco", "GEOMETRY_NAME=geom",
		"-lco", "FID=ogc_fid",
		"-nlt", "PROMOTE_TO_MULTI",
		"-t_srs", "EPSG:4326",
		"-overwrite",
	}
	if sourceSrid > 0 {
		args = append(args, "-s_srs", fmt.Sprintf("EPSG:%d", sourceSrid))
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return fmt.Errorf("%w (exit %d): %s", methods.ErrLoadFailure, code, strings.TrimSpace(stderr.String()))
	}
	return nil
}

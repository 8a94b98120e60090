// Package params loads component parameter files.
//
// Parameter files are JSON5 (comments and trailing commas allowed) and go
// through environment variable substitution before parsing, so deployments
// can splice machine-specific values in.
package params

import (
	"os"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Load reads the parameter file at path into out.
func Load(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't read parameter file %q", path)
	}

	substituted, err := envsubst.Bytes(raw)
	if err != nil {
		return errors.Wrapf(err, "couldn't substitute environment variables in %q", path)
	}

	if err := json5.Unmarshal(substituted, out); err != nil {
		return errors.Wrapf(err, "couldn't parse parameter file %q", path)
	}
	return nil
}

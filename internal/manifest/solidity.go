package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultSolidityVersion is used when no pragma names a version, or when the
// version it names first is older than 0.8.0 but the range still admits the
// default.
const DefaultSolidityVersion = "0.8.20"

// latest08Patch bounds the 0.8.x releases considered when a pragma admits
// neither its own lower bound nor the default.
const latest08Patch = 30

// ErrUnsupportedVersion is returned for pragmas that admit no 0.8.x compiler.
var ErrUnsupportedVersion = errors.New("unsupported solidity version")

var (
	pragmaRe  = regexp.MustCompile(`pragma\s+solidity\s+([^;]+);`)
	versionRe = regexp.MustCompile(`\d+\.\d+\.\d+`)

	minVersion = semver.MustParse("0.8.0")
)

// SolidityVersion returns the compiler version a source asks for.
//
// The first x.y.z of the pragma wins when it is at least 0.8.0 and the
// pragma admits it. Otherwise DefaultSolidityVersion is used if admitted,
// then the newest admitted 0.8.x. A pragma that admits no 0.8.x compiler is
// ErrUnsupportedVersion. Pragmas that do not parse as a range fall back to
// the first version they name, or the default.
func SolidityVersion(source string) (string, error) {
	m := pragmaRe.FindStringSubmatch(source)
	if m == nil {
		return DefaultSolidityVersion, nil
	}
	spec := strings.TrimSpace(m[1])

	var first *semver.Version
	if s := versionRe.FindString(spec); s != "" {
		first, _ = semver.NewVersion(s)
	}

	c, err := semver.NewConstraint(spec)
	if err != nil {
		if first != nil && !first.LessThan(minVersion) {
			return first.String(), nil
		}
		return DefaultSolidityVersion, nil
	}

	if first != nil && !first.LessThan(minVersion) && c.Check(first) {
		return first.String(), nil
	}
	if c.Check(semver.MustParse(DefaultSolidityVersion)) {
		return DefaultSolidityVersion, nil
	}
	for patch := latest08Patch; patch >= 0; patch-- {
		v := semver.New(0, 8, uint64(patch), "", "")
		if c.Check(v) {
			return v.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %q admits no 0.8.x compiler", ErrUnsupportedVersion, spec)
}

// CompilerVersion returns the highest version required by sources, compiled
// together as one unit.
func CompilerVersion(sources ...string) (string, error) {
	if len(sources) == 0 {
		return DefaultSolidityVersion, nil
	}
	best := minVersion
	for _, src := range sources {
		s, err := SolidityVersion(src)
		if err != nil {
			return "", err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedVersion, s)
		}
		if v.GreaterThan(best) {
			best = v
		}
	}
	return best.String(), nil
}

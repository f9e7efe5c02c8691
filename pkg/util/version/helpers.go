package version

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/blang/semver/v4"
)

//nolint:gochecknoglobals
var rsVersionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)-(\d+)$`)

// RSVersion is a Redis Enterprise software version such as "6.2.10-96":
// a semantic version followed by a build number.
type RSVersion struct {
	semver.Version

	Build uint64
}

// ParseRS parses "<major>.<minor>.<patch>-<build>".
func ParseRS(s string) (RSVersion, error) {
	m := rsVersionPattern.FindStringSubmatch(s)
	if m == nil {
		return RSVersion{}, fmt.Errorf("invalid software version %q", s)
	}

	v, err := semver.Parse(m[1] + "." + m[2] + "." + m[3])
	if err != nil {
		return RSVersion{}, fmt.Errorf("parsing software version %q: %w", s, err)
	}

	build, err := strconv.ParseUint(m[4], 10, 64)
	if err != nil {
		return RSVersion{}, fmt.Errorf("parsing build of %q: %w", s, err)
	}

	return RSVersion{Version: v, Build: build}, nil
}

// Compare returns -1, 0 or 1; the build number breaks ties between equal versions.
func (v RSVersion) Compare(o RSVersion) int {
	if c := v.Version.Compare(o.Version); c != 0 {
		return c
	}

	switch {
	case v.Build < o.Build:
		return -1
	case v.Build > o.Build:
		return 1
	default:
		return 0
	}
}

func (v RSVersion) String() string {
	return fmt.Sprintf("%s-%d", v.Version.String(), v.Build)
}

// Latest returns the highest of the given versions. Unparsable entries are an error.
func Latest(versions ...string) (RSVersion, error) {
	var latest RSVersion

	for i, s := range versions {
		v, err := ParseRS(s)
		if err != nil {
			return RSVersion{}, err
		}

		if i == 0 || v.Compare(latest) > 0 {
			latest = v
		}
	}

	if len(versions) == 0 {
		return RSVersion{}, fmt.Errorf("no software versions given")
	}

	return latest, nil
}

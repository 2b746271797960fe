package gav

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	nxerrors "github.com/nxindex/core/internal/errors"
)

// GavCalculator is a pure bidirectional mapping between a Maven2
// repository path and a Gav.
type GavCalculator interface {
	PathToGav(path string) (*Gav, error)
	GavToPath(g *Gav) (string, error)
}

// knownExtensions lists the extensions the calculator recognises when
// splitting a file name. Longest match wins, per the tie-break rule.
var knownExtensions = []string{
	"tar.gz", "tar.bz2",
	"jar", "war", "ear", "rar", "pom", "xml", "zip", "gz", "bz2",
	"aar", "so", "dll", "dylib", "exe", "txt", "asc", "sha1", "md5",
	"module",
}

// snapshotVersionRe matches a snapshot version segment: baseVersion,
// timestamp (YYYYMMDD.HHMMSS), build number.
var snapshotVersionRe = regexp.MustCompile(`^(.+)-(\d{8}\.\d{6})-(\d+)$`)

// snapshotSuffix matches a directory-level SNAPSHOT version.
const snapshotSuffix = "-SNAPSHOT"

// M2GavCalculator implements GavCalculator for the standard Maven2
// repository layout.
type M2GavCalculator struct{}

// NewM2GavCalculator constructs the standard Maven2 layout calculator.
func NewM2GavCalculator() *M2GavCalculator {
	return &M2GavCalculator{}
}

// PathToGav parses a repository-relative path into a Gav. Path grammar:
//
//	non-snapshot: <groupPath>/<artifactId>/<version>/<artifactId>-<version>[-<classifier>].<ext>
//	snapshot:     ... -<baseVersion>-<YYYYMMDD.HHMMSS>-<buildNumber>[-<classifier>].<ext>
func (c *M2GavCalculator) PathToGav(path string) (*Gav, error) {
	p := strings.TrimPrefix(path, "/")
	segs := strings.Split(p, "/")
	if len(segs) < 4 {
		return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
			fmt.Sprintf("path %q has too few segments for a Maven2 layout", path), nil)
	}

	fileName := segs[len(segs)-1]
	version := segs[len(segs)-2]
	artifactID := segs[len(segs)-3]
	groupID := strings.Join(segs[:len(segs)-3], ".")

	if groupID == "" || artifactID == "" || version == "" {
		return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
			fmt.Sprintf("path %q does not resolve to a groupId/artifactId/version", path), nil)
	}

	ext, remainder, ok := splitExtension(fileName)
	if !ok {
		return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
			fmt.Sprintf("path %q has no recognised extension", path), nil)
	}

	prefix := artifactID + "-" + version
	if !strings.HasPrefix(remainder, artifactID+"-") {
		return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
			fmt.Sprintf("file name %q does not start with artifactId %q", fileName, artifactID), nil)
	}

	g := &Gav{
		GroupID:     groupID,
		ArtifactID:  artifactID,
		Version:     version,
		BaseVersion: version,
		Extension:   ext,
	}

	isSnapshotDir := strings.HasSuffix(version, snapshotSuffix)

	switch {
	case remainder == prefix:
		// no classifier
	case strings.HasPrefix(remainder, prefix+"-"):
		g.Classifier = strings.TrimPrefix(remainder, prefix+"-")
	case isSnapshotDir:
		// timestamped snapshot file name: <artifactId>-<baseVersion>-<ts>-<build>[-<classifier>]
		baseVersion := strings.TrimSuffix(version, snapshotSuffix)
		afterArtifact := strings.TrimPrefix(remainder, artifactID+"-")
		if !strings.HasPrefix(afterArtifact, baseVersion+"-") {
			return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
				fmt.Sprintf("snapshot file name %q does not match base version %q", fileName, baseVersion), nil)
		}
		rest := strings.TrimPrefix(afterArtifact, baseVersion+"-")

		// rest is "<ts>-<build>[-<classifier>]"
		m := snapshotVersionRe.FindStringSubmatch(baseVersion + "-" + rest)
		if m == nil {
			// try matching just rest as "<ts>-<build>[-classifier tail]"
			restSegs := strings.SplitN(rest, "-", 3)
			if len(restSegs) < 2 {
				return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
					fmt.Sprintf("could not parse snapshot timestamp/build from %q", fileName), nil)
			}
			ts := restSegs[0]
			buildStr := restSegs[1]
			build, err := strconv.Atoi(strings.TrimSuffix(buildStr, "-"))
			if err != nil {
				return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
					fmt.Sprintf("invalid build number in %q: %v", fileName, err), nil)
			}
			g.BaseVersion = baseVersion
			g.Snapshot = true
			g.SnapshotTimestamp = ts
			g.BuildNumber = build
			if len(restSegs) == 3 {
				g.Classifier = restSegs[2]
			}
		} else {
			g.BaseVersion = m[1]
			g.Snapshot = true
			g.SnapshotTimestamp = m[2]
			build, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
					fmt.Sprintf("invalid build number in %q: %v", fileName, err), nil)
			}
			g.BuildNumber = build
		}
	default:
		return nil, nxerrors.New(nxerrors.ErrCodeInvalidPath,
			fmt.Sprintf("file name %q does not match artifactId-version pattern", fileName), nil)
	}

	if isSnapshotDir && !g.Snapshot {
		// Directory names -SNAPSHOT but the file uses the literal
		// "-SNAPSHOT" suffix (metadata/plugin snapshots without a
		// minted timestamp yet).
		g.BaseVersion = strings.TrimSuffix(version, snapshotSuffix)
		g.Snapshot = true
	}

	return g, nil
}

// GavToPath renders a Gav back into its canonical repository-relative
// path. It is the exact inverse of PathToGav for every path that
// PathToGav accepts.
func (c *M2GavCalculator) GavToPath(g *Gav) (string, error) {
	if g.GroupID == "" || g.ArtifactID == "" || g.Version == "" || g.Extension == "" {
		return "", nxerrors.New(nxerrors.ErrCodeInvalidGav, "gav is missing required fields", nil)
	}

	groupPath := strings.ReplaceAll(g.GroupID, ".", "/")

	var fileVersion string
	if g.Snapshot && g.SnapshotTimestamp != "" {
		fileVersion = fmt.Sprintf("%s-%s-%d", g.BaseVersion, g.SnapshotTimestamp, g.BuildNumber)
	} else {
		fileVersion = g.Version
	}

	fileName := g.ArtifactID + "-" + fileVersion
	if g.Classifier != "" {
		fileName += "-" + g.Classifier
	}
	fileName += "." + g.Extension

	return strings.Join([]string{groupPath, g.ArtifactID, g.Version, fileName}, "/"), nil
}

// splitExtension finds the longest known extension suffix on fileName and
// returns (extension, remainderWithoutDotExt, ok).
func splitExtension(fileName string) (string, string, bool) {
	best := ""
	for _, ext := range knownExtensions {
		suffix := "." + ext
		if strings.HasSuffix(fileName, suffix) && len(ext) > len(best) {
			best = ext
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, strings.TrimSuffix(fileName, "."+best), true
}

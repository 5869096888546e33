// Package dependency models external library dependency declarations as
// consumed by the replacement router and the provenance resolver.
package dependency

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Artifact is an explicitly requested artifact of a dependency, such as a
// sources jar.
type Artifact struct {
	Classifier string
	Extension  string
}

// Dependency is an external module coordinate. The zero Version means the
// consumer did not pin one.
type Dependency struct {
	Group     string
	Name      string
	Version   string
	Artifacts []Artifact
}

// notationRegex matches "group:name[:version[:classifier]][@extension]".
var notationRegex = regexp.MustCompile(`^([^:@\s]+):([^:@\s]+)(?::([^:@\s]*))?(?::([^:@\s]+))?(?:@([^:@\s]+))?$`)

// Parse reads a dependency notation of the form
// "group:name[:version[:classifier]][@extension]".
func Parse(notation string) (Dependency, error) {
	m := notationRegex.FindStringSubmatch(strings.TrimSpace(notation))
	if m == nil {
		return Dependency{}, fmt.Errorf("invalid dependency notation %q: expected group:name[:version[:classifier]][@extension]", notation)
	}
	d := Dependency{Group: m[1], Name: m[2], Version: m[3]}
	if m[4] != "" || m[5] != "" {
		ext := m[5]
		if ext == "" {
			ext = "jar"
		}
		d.Artifacts = []Artifact{{Classifier: m[4], Extension: ext}}
	}
	return d, nil
}

// String renders the dependency back into notation form.
func (d Dependency) String() string {
	var sb strings.Builder
	sb.WriteString(d.Group)
	sb.WriteByte(':')
	sb.WriteString(d.Name)
	if d.Version != "" || len(d.Artifacts) > 0 {
		sb.WriteByte(':')
		sb.WriteString(d.Version)
	}
	for _, a := range d.Artifacts {
		if a.Classifier != "" {
			sb.WriteByte(':')
			sb.WriteString(a.Classifier)
		}
		if a.Extension != "" && (a.Extension != "jar" || a.Classifier == "") {
			sb.WriteByte('@')
			sb.WriteString(a.Extension)
		}
	}
	return sb.String()
}

// Equal compares every coordinate, including requested artifacts.
func (d Dependency) Equal(o Dependency) bool {
	return d.Group == o.Group &&
		d.Name == o.Name &&
		d.Version == o.Version &&
		slices.Equal(d.Artifacts, o.Artifacts)
}

// WithVersion returns a copy of d pinned to version.
func (d Dependency) WithVersion(version string) Dependency {
	c := d
	c.Version = version
	c.Artifacts = slices.Clone(d.Artifacts)
	return c
}

// HasOnlySources reports whether d requests exactly one sources jar.
func (d Dependency) HasOnlySources() bool {
	return len(d.Artifacts) == 1 &&
		d.Artifacts[0].Classifier == "sources" &&
		d.Artifacts[0].Extension == "jar"
}

// RepositoryPath returns the slash-separated location of d's file in a Maven
// repository layout, for example
// "net/neoforged/installertools/2.1.2/installertools-2.1.2-fatjar.jar".
// d must carry a version and at most one artifact; without an artifact the
// plain jar is meant.
func (d Dependency) RepositoryPath() (string, error) {
	if d.Version == "" {
		return "", fmt.Errorf("dependency %s has no version", d)
	}
	if len(d.Artifacts) > 1 {
		return "", fmt.Errorf("dependency %s requests %d artifacts, expected at most one", d, len(d.Artifacts))
	}
	art := Artifact{Extension: "jar"}
	if len(d.Artifacts) == 1 {
		art = d.Artifacts[0]
	}
	for _, part := range []string{d.Name, d.Version, art.Classifier, art.Extension} {
		if !safeSegment(part) {
			return "", fmt.Errorf("dependency %s has an invalid path segment %q", d, part)
		}
	}
	groupPath := strings.Split(d.Group, ".")
	for _, part := range groupPath {
		if part == "" || !safeSegment(part) {
			return "", fmt.Errorf("dependency %s has an invalid group %q", d, d.Group)
		}
	}

	file := d.Name + "-" + d.Version
	if art.Classifier != "" {
		file += "-" + art.Classifier
	}
	file += "." + art.Extension
	return strings.Join(append(groupPath, d.Name, d.Version, file), "/"), nil
}

func safeSegment(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

package resolver

import (
	"bytes"
	"regexp"
	"strings"
)

// TOML manifests are rewritten line by line so comments, ordering and
// spacing survive a version bump. Decoding for reads goes through go-toml.

var tomlHeaderRe = regexp.MustCompile(`^\s*\[\s*([^\[\]]+?)\s*\]\s*(#.*)?$`)
var tomlArrayHeaderRe = regexp.MustCompile(`^\s*\[\[\s*([^\[\]]+?)\s*\]\]\s*(#.*)?$`)

// tomlStringLine matches `key = "value"` keeping the prefix, quote and tail.
func tomlStringLine(key string) *regexp.Regexp {
	return regexp.MustCompile(`^(\s*` + regexp.QuoteMeta(key) + `\s*=\s*)(["'])((?:\\.|[^"'\\])*)(["'])(.*)$`)
}

// normalizeTable removes quotes and spaces from a dotted table name.
func normalizeTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return strings.Join(parts, ".")
}

// setTOMLString replaces the string value of key inside [table]. An empty
// table addresses the top level. It reports whether a line was changed.
func setTOMLString(content []byte, table, key, value string) ([]byte, bool) {
	lineRe := tomlStringLine(key)
	lines := bytes.Split(content, []byte("\n"))

	current := ""
	for i, line := range lines {
		s := string(line)
		if m := tomlArrayHeaderRe.FindStringSubmatch(s); m != nil {
			current = "[[" + normalizeTable(m[1]) + "]]"
			continue
		}
		if m := tomlHeaderRe.FindStringSubmatch(s); m != nil {
			current = normalizeTable(m[1])
			continue
		}
		if current != table {
			continue
		}
		if m := lineRe.FindStringSubmatch(s); m != nil {
			lines[i] = []byte(m[1] + m[2] + value + m[4] + m[5])
			return bytes.Join(lines, []byte("\n")), true
		}
	}
	return content, false
}

// setCargoLockVersion rewrites the version of the [[package]] entry whose
// name is name and whose version is oldVersion.
func setCargoLockVersion(content []byte, name, oldVersion, newVersion string) ([]byte, bool) {
	nameRe := tomlStringLine("name")
	versionRe := tomlStringLine("version")
	lines := bytes.Split(content, []byte("\n"))

	inPackage := false
	matched := false
	for i, line := range lines {
		s := string(line)
		if m := tomlArrayHeaderRe.FindStringSubmatch(s); m != nil {
			inPackage = normalizeTable(m[1]) == "package"
			matched = false
			continue
		}
		if tomlHeaderRe.MatchString(s) {
			inPackage = false
			continue
		}
		if !inPackage {
			continue
		}
		if m := nameRe.FindStringSubmatch(s); m != nil {
			matched = m[3] == name
			continue
		}
		if m := versionRe.FindStringSubmatch(s); m != nil && matched && m[3] == oldVersion {
			lines[i] = []byte(m[1] + m[2] + newVersion + m[4] + m[5])
			return bytes.Join(lines, []byte("\n")), true
		}
	}
	return content, false
}

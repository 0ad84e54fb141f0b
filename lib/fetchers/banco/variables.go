package banco

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ValueInfo is one selectable value of a series variable. Dependency
// links barrio values to their district value id.
type ValueInfo struct {
	ID         string
	Label      string
	Dependency string
	Flag       string
	Extra      string
}

type VariableInfo struct {
	ID         string
	Name       string
	Dependency string
	Values     []ValueInfo
}

func (v VariableInfo) LabelMap() map[string]ValueInfo {
	m := make(map[string]ValueInfo, len(v.Values))
	for _, val := range v.Values {
		m[strings.TrimSpace(val.Label)] = val
	}
	return m
}

var (
	variableRe = regexp.MustCompile(`varTmp\s*=\s*new\s+variable\s*\(\s*"(\d+)"\s*,\s*"([^"]+)"\s*,\s*"([^"]*)"(?:\s*,\s*"([^"]*)")?\s*\);`)
	valueRe    = regexp.MustCompile(`valTmp\s*=\s*new\s+valor\s*\(\s*"(\d+)"\s*,\s*"([^"]+)"\s*,\s*"([^"]*)"\s*,\s*"([^"]*)"(?:\s*,\s*"([^"]*)")?\s*\);`)
)

// ParseVariables extracts the `new variable(...)` / `new valor(...)`
// declarations the selection page builds its picker widgets from.
// Values belong to the most recently declared variable.
func ParseVariables(page string) map[string]*VariableInfo {
	variables := map[string]*VariableInfo{}
	var current *VariableInfo

	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := variableRe.FindStringSubmatch(line); m != nil {
			current = &VariableInfo{ID: m[1], Name: m[2], Dependency: m[3]}
			variables[current.ID] = current
			continue
		}
		if m := valueRe.FindStringSubmatch(line); m != nil && current != nil {
			current.Values = append(current.Values, ValueInfo{
				ID:         m[1],
				Label:      m[2],
				Dependency: m[3],
				Flag:       m[4],
				Extra:      m[5],
			})
		}
	}
	return variables
}

// FindVariable looks a variable up by its display name, case
// insensitively.
func FindVariable(variables map[string]*VariableInfo, name string) (*VariableInfo, error) {
	needle := strings.ToLower(name)
	for _, v := range variables {
		if strings.ToLower(v.Name) == needle {
			return v, nil
		}
	}
	return nil, fmt.Errorf("variable %q not found in series metadata", name)
}

// SelectYearIDs maps the requested years onto value ids, skipping
// years the series does not carry.
func SelectYearIDs(variable *VariableInfo, years []int) ([]string, error) {
	labels := variable.LabelMap()
	var selected []string
	for _, year := range years {
		if val, ok := labels[strconv.Itoa(year)]; ok {
			selected = append(selected, val.ID)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("none of the requested years are available in the series metadata")
	}
	return selected, nil
}

// SelectMonthIDs returns the month value ids in calendar order.
func SelectMonthIDs(variable *VariableInfo) []string {
	type entry struct {
		order int
		id    string
	}
	var entries []entry
	for _, val := range variable.Values {
		if idx, ok := MonthIndex[strings.TrimSpace(val.Label)]; ok {
			entries = append(entries, entry{idx, val.ID})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

func SelectDistrictID(variable *VariableInfo, districtLabel string) (string, error) {
	for _, val := range variable.Values {
		if strings.EqualFold(strings.TrimSpace(val.Label), districtLabel) {
			return val.ID, nil
		}
	}
	return "", fmt.Errorf("district %q not found in series metadata", districtLabel)
}

// SelectBarrios returns the barrio values hanging off a district
// value id.
func SelectBarrios(variable *VariableInfo, districtValueID string) ([]ValueInfo, error) {
	var barrios []ValueInfo
	for _, val := range variable.Values {
		if val.Dependency == districtValueID {
			barrios = append(barrios, val)
		}
	}
	if len(barrios) == 0 {
		return nil, fmt.Errorf("no barrio entries found for district value id %q", districtValueID)
	}
	return barrios, nil
}

package provider

import (
	"fmt"
	"strings"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/types"
)

// ResolveInstanceName maps an optional user-supplied instance name to a
// full instance name for the given project. An empty instance resolves to
// the project default (<project>-dev); an explicit one to
// <project>-<instance>. A name that already carries the project prefix is
// accepted as-is, so output of List can be fed back in.
func ResolveInstanceName(proj *config.ProjectConfig, instance string) (string, error) {
	if proj == nil || proj.Name == "" {
		if instance == "" {
			return "", ErrNoProject
		}
		return instance, nil
	}
	if instance == "" {
		return proj.DefaultInstance(), nil
	}
	if strings.HasPrefix(instance, proj.Name+"-") {
		return instance, nil
	}
	return proj.Name + "-" + instance, nil
}

// MatchInstance resolves a partial name against a listing: exact match
// first, then the <partial>-dev convention, then unique substring match.
func MatchInstance(partial string, instances []types.InstanceInfo) (string, error) {
	for _, inst := range instances {
		if inst.Name == partial {
			return inst.Name, nil
		}
	}
	candidate := partial + "-" + config.DefaultInstanceSuffix
	for _, inst := range instances {
		if inst.Name == candidate {
			return inst.Name, nil
		}
	}
	var matches []string
	for _, inst := range instances {
		if strings.Contains(inst.Name, partial) {
			matches = append(matches, inst.Name)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no instance matching %q: %w", partial, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous instance %q: matches %s", partial, strings.Join(matches, ", "))
	}
}

package docker

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/burrowtool/burrow/config"
	"github.com/burrowtool/burrow/types"
	"github.com/burrowtool/burrow/utils"
)

// Marker comments delimit the tool-managed mount region inside the
// rendered compose file. Everything between them is rewritten on mount
// reconciliation; everything outside is only touched by a full re-render.
const (
	mountsBegin = "      # --- burrow mounts begin ---"
	mountsEnd   = "      # --- burrow mounts end ---"
)

// renderCompose writes the instance's compose file. global, when set,
// contributes service connection env vars so a config change can be
// applied by re-rendering plus restart.
func (p *Provider) renderCompose(instance string, mounts []types.Mount, global *config.Config) error {
	if err := os.MkdirAll(p.renderDir(instance), 0o750); err != nil {
		return fmt.Errorf("create render dir: %w", err)
	}
	content := p.composeContent(instance, mounts, global)
	if err := utils.AtomicWriteFile(p.composePath(instance), []byte(content), 0o640); err != nil {
		return fmt.Errorf("write compose file: %w", err)
	}
	return nil
}

func (p *Provider) composeContent(instance string, mounts []types.Mount, global *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "services:\n")
	fmt.Fprintf(&b, "  %s:\n", instance)
	fmt.Fprintf(&b, "    container_name: %s\n", instance)
	fmt.Fprintf(&b, "    image: %s\n", p.proj.Image)
	fmt.Fprintf(&b, "    command: [\"sleep\", \"infinity\"]\n")
	fmt.Fprintf(&b, "    working_dir: %s\n", GuestWorkspace)
	fmt.Fprintf(&b, "    network_mode: host\n")
	if p.proj.Memory != "" {
		fmt.Fprintf(&b, "    mem_limit: %s\n", p.proj.Memory)
	}
	if p.proj.CPUs > 0 {
		fmt.Fprintf(&b, "    cpus: %d\n", p.proj.CPUs)
	}
	fmt.Fprintf(&b, "    labels:\n")
	fmt.Fprintf(&b, "      %s: \"true\"\n", labelManaged)
	fmt.Fprintf(&b, "      %s: %s\n", labelProject, p.proj.Name)

	if env := p.serviceEnv(global); len(env) > 0 {
		fmt.Fprintf(&b, "    environment:\n")
		for _, kv := range env {
			fmt.Fprintf(&b, "      %s\n", kv)
		}
	}

	fmt.Fprintf(&b, "    volumes:\n")
	fmt.Fprintf(&b, "      - %s:%s\n", p.proj.Dir, GuestWorkspace)
	for _, m := range p.proj.Mounts {
		fmt.Fprintf(&b, "      - %s\n", m)
	}
	fmt.Fprintf(&b, "%s\n", mountsBegin)
	for _, line := range mountLines(mounts) {
		fmt.Fprintf(&b, "%s\n", line)
	}
	fmt.Fprintf(&b, "%s\n", mountsEnd)
	return b.String()
}

// serviceEnv renders connection env vars for the enabled services, sorted
// for stable output.
func (p *Provider) serviceEnv(global *config.Config) []string {
	if global == nil {
		global = p.conf
	}
	var out []string
	for _, name := range p.proj.EnabledServices(global) {
		setting := p.proj.ServiceSettingFor(global, name)
		if setting.Port == 0 {
			continue
		}
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		out = append(out, fmt.Sprintf("BURROW_%s_PORT: \"%d\"", key, setting.Port))
	}
	sort.Strings(out)
	return out
}

func mountLines(mounts []types.Mount) []string {
	lines := make([]string, 0, len(mounts))
	for _, m := range mounts {
		lines = append(lines, fmt.Sprintf("      - %s", m.String()))
	}
	return lines
}

// ReplaceManagedRegion swaps the lines between the mount markers for the
// given replacement, leaving the rest of the document untouched. Errors
// when the markers are missing or out of order.
func ReplaceManagedRegion(content string, lines []string) (string, error) {
	all := strings.Split(content, "\n")
	begin, end := -1, -1
	for i, l := range all {
		switch strings.TrimRight(l, " ") {
		case mountsBegin:
			begin = i
		case mountsEnd:
			end = i
		}
	}
	if begin < 0 || end < 0 || end < begin {
		return "", fmt.Errorf("managed mount markers missing or malformed")
	}
	out := make([]string, 0, len(all)-(end-begin-1)+len(lines))
	out = append(out, all[:begin+1]...)
	out = append(out, lines...)
	out = append(out, all[end:]...)
	return strings.Join(out, "\n"), nil
}

// rewriteMounts updates only the managed region of an existing compose
// file. Falls back to a full render when the file is missing.
func (p *Provider) rewriteMounts(instance string, mounts []types.Mount) error {
	path := p.composePath(instance)
	raw, err := os.ReadFile(path) //nolint:gosec // tool-owned render dir
	if os.IsNotExist(err) {
		return p.renderCompose(instance, mounts, nil)
	}
	if err != nil {
		return fmt.Errorf("read compose file: %w", err)
	}
	updated, err := ReplaceManagedRegion(string(raw), mountLines(mounts))
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(path, []byte(updated), 0o640)
}

package ports

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cmdcore "github.com/burrowtool/burrow/cmd/core"
	portreg "github.com/burrowtool/burrow/ports"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	allocs, err := portreg.NewRegistry(conf).List(ctx)
	if err != nil {
		return err
	}
	if len(allocs) == 0 {
		fmt.Println("No port allocations.")
		return nil
	}

	projects := make([]string, 0, len(allocs))
	for name := range allocs {
		projects = append(projects, name)
	}
	sort.Strings(projects)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROJECT\tRANGE\tPATH")
	for _, name := range projects {
		a := allocs[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, a.Range, a.Path)
	}
	w.Flush() //nolint:errcheck,gosec
	return nil
}

func (h Handler) Release(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	if err := portreg.NewRegistry(conf).Release(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Released ports for %s.\n", args[0])
	return nil
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/carlens/internal/dashboard"
	"github.com/KaramelBytes/carlens/internal/filter"
	"github.com/KaramelBytes/carlens/internal/listing"
	"github.com/KaramelBytes/carlens/internal/render"
	"github.com/KaramelBytes/carlens/internal/utils"
	"github.com/spf13/cobra"
)

var exploreFlags stateFlags

const exploreHelp = `Commands:
  filter <column>=<v1,v2|All>   set the selection for a column
  unfilter <column>             drop the selection for a column
  options <column>              list selectable values
  clip <price|days> <on|off>    toggle outlier clipping
  order <before|after>          clip before or after filtering
  brand <name|All>              brand shown in the scatter
  top <n> | bins <n>            chart sizes
  show [chart]                  print the dashboard or one chart
  png [dir]                     export charts as PNG
  reset                         restore the initial state
  quit                          leave
`

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactive session: every change re-renders the dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		initial, err := exploreFlags.state()
		if err != nil {
			return err
		}
		s, err := newSession()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		ex := &explorer{session: s, state: initial, initial: initial, out: out}
		fmt.Fprintf(out, "Session %s on %s (%d rows). Type 'help' for commands.\n", s.ID, s.Dataset, s.Table().Len())
		ex.render()

		sc := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "carlens> ")
			if !sc.Scan() {
				fmt.Fprintln(out)
				return sc.Err()
			}
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			done, err := ex.exec(line)
			if err != nil {
				fmt.Fprintln(out, "✗", err)
				continue
			}
			if done {
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreFlags.register(exploreCmd)
}

// explorer holds one interactive session and its widget state.
type explorer struct {
	session *dashboard.Session
	state   dashboard.State
	initial dashboard.State
	out     io.Writer
}

func (e *explorer) render() {
	d := e.session.Render(e.state)
	fmt.Fprint(e.out, d.Markdown())
}

// exec runs one command line. It reports true when the session should end.
func (e *explorer) exec(line string) (bool, error) {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprint(e.out, exploreHelp)
		return false, nil
	case "show":
		if rest == "" {
			e.render()
			return false, nil
		}
		c, err := e.session.Chart(strings.ToLower(rest), e.state)
		if err != nil {
			return false, err
		}
		fmt.Fprint(e.out, c.Markdown())
		return false, nil
	case "options":
		col, ok := listing.ParseColumn(rest)
		if !ok {
			return false, &listing.InvalidFilterError{Column: rest, Reason: "unknown column"}
		}
		fmt.Fprintln(e.out, strings.Join(filter.Options(e.session.Table(), col), ", "))
		return false, nil
	case "png":
		return false, e.exportPNG(rest)
	}

	next, err := e.apply(strings.ToLower(verb), rest)
	if err != nil {
		return false, err
	}
	e.state = next
	e.render()
	return false, nil
}

// apply returns the state after a state-changing command.
func (e *explorer) apply(verb, arg string) (dashboard.State, error) {
	st := e.state
	switch verb {
	case "filter":
		spec, err := filter.ParseExpr(arg)
		if err != nil {
			return st, err
		}
		for col, vals := range spec {
			st.Filters = st.Filters.Where(col, vals...)
		}
	case "unfilter":
		col, ok := listing.ParseColumn(arg)
		if !ok {
			return st, &listing.InvalidFilterError{Column: arg, Reason: "unknown column"}
		}
		merged := filter.Spec{}
		for c, vals := range st.Filters {
			if c != col {
				merged[c] = vals
			}
		}
		st.Filters = merged
	case "clip":
		name, toggle, _ := strings.Cut(arg, " ")
		on, err := parseToggle(strings.TrimSpace(toggle))
		if err != nil {
			return st, err
		}
		switch strings.ToLower(name) {
		case "price":
			st.ClipPrice = on
		case "days", "days_listed":
			st.ClipDaysListed = on
		default:
			return st, fmt.Errorf("unknown clip target: %s (use price or days)", name)
		}
	case "order":
		switch strings.ToLower(arg) {
		case "before", "before_filter":
			st.ClipAfterFilter = false
		case "after", "after_filter":
			st.ClipAfterFilter = true
		default:
			return st, fmt.Errorf("unknown order: %s (use before or after)", arg)
		}
	case "brand":
		st.ScatterBrand = arg
	case "top", "bins":
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return st, fmt.Errorf("invalid %s: %q (must be a positive integer)", verb, arg)
		}
		if verb == "top" {
			st.TopN = n
		} else {
			st.Bins = n
		}
	case "reset":
		st = e.initial
	default:
		return st, fmt.Errorf("unknown command: %s (type 'help')", verb)
	}
	return st, nil
}

func (e *explorer) exportPNG(dir string) error {
	if dir == "" {
		if cfg == nil {
			return fmt.Errorf("no output directory")
		}
		dir = filepath.Join(cfg.OutputDir, e.session.ID)
	}
	d := e.session.Render(e.state)
	for _, c := range d.Charts() {
		if c.Error != "" {
			fmt.Fprintf(e.out, "⚠ skipped %s: %s\n", c.Name, c.Error)
			continue
		}
		p, err := render.WriteFile(utils.ExpandHome(dir), c, renderOptions())
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "✓ Wrote %s\n", p)
	}
	return nil
}

func parseToggle(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid toggle: %q (use on or off)", s)
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/ui"
)

// Command groups shown by help
const (
	groupCrawl    = "crawl"
	groupSettings = "settings"
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCrawl, Title: "Crawling"},
		&cobra.Group{ID: groupSettings, Title: "Settings"},
	)

	rootCmd.SetHelpFunc(helpFunc)
	rootCmd.SetUsageFunc(usageFunc)
}

// helpFunc prints the colorized help of cmd to its output stream
func helpFunc(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.CommandPath()), ui.ColorReset)
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if long := strings.TrimSpace(cmd.Long); long != "" && long != cmd.Short {
		fmt.Fprintf(w, "\n%s\n", long)
	}

	writeUsage(w, cmd)
	writeExamples(w, cmd)
	writeCommands(w, cmd)
	writeFlags(w, "Flags", cmd.LocalFlags())
	writeFlags(w, "Global Flags", cmd.InheritedFlags())
	writeFooter(w, cmd)
	fmt.Fprintln(w)
}

// usageFunc is the short form printed on errors
func usageFunc(cmd *cobra.Command) error {
	w := cmd.ErrOrStderr()
	writeUsage(w, cmd)
	writeCommands(w, cmd)
	writeFlags(w, "Flags", cmd.LocalFlags())
	writeFooter(w, cmd)
	return nil
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
}

func writeUsage(w io.Writer, cmd *cobra.Command) {
	heading(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s %s[flags]%s\n",
			ui.ColorCyan, cmd.CommandPath(), ui.ColorReset,
			ui.ColorYellow, ui.ColorReset,
			ui.ColorDim, ui.ColorReset)
	}
}

// writeExamples shows comment lines dimmed and commands with a prompt
func writeExamples(w io.Writer, cmd *cobra.Command) {
	if !cmd.HasExample() {
		return
	}
	heading(w, "Examples")

	afterCommand := false
	for _, line := range strings.Split(cmd.Example, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "#"):
			if afterCommand {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s%s%s\n", ui.ColorDim, line, ui.ColorReset)
			afterCommand = false
		default:
			fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, line, ui.ColorReset)
			afterCommand = true
		}
	}
}

// writeCommands lists subcommands under their group titles. Commands
// without a group come last.
func writeCommands(w io.Writer, cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}

	var cmds []*cobra.Command
	width := 0
	for _, c := range cmd.Commands() {
		if !c.IsAvailableCommand() || c.Name() == "help" {
			continue
		}
		cmds = append(cmds, c)
		width = max(width, len(c.Name()))
	}

	section := func(title, groupID string) {
		printed := false
		for _, c := range cmds {
			if c.GroupID != groupID {
				continue
			}
			if !printed {
				heading(w, title)
				printed = true
			}
			fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n",
				ui.ColorCyan, width, c.Name(), ui.ColorReset,
				ui.ColorDim, c.Short, ui.ColorReset)
		}
	}

	for _, g := range cmd.Groups() {
		section(g.Title, g.ID)
	}
	title := "Commands"
	if len(cmd.Groups()) > 0 {
		title = "Other Commands"
	}
	section(title, "")
}

// writeFlags prints one aligned row per visible flag of fs
func writeFlags(w io.Writer, title string, fs *pflag.FlagSet) {
	if !fs.HasAvailableFlags() {
		return
	}

	type row struct{ name, usage string }
	var rows []row
	width := 28
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name, usage := flagRow(f)
		rows = append(rows, row{name, usage})
		width = max(width, len(name))
	})

	heading(w, title)
	for _, r := range rows {
		fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n",
			ui.ColorGreen, width, r.name, ui.ColorReset,
			ui.ColorDim, r.usage, ui.ColorReset)
	}
}

// flagRow renders f as "-o, --output string" and its usage with the default
func flagRow(f *pflag.Flag) (string, string) {
	varname, usage := pflag.UnquoteUsage(f)

	name := "    --" + f.Name
	if f.Shorthand != "" {
		name = "-" + f.Shorthand + ", --" + f.Name
	}
	if varname != "" {
		name += " " + varname
	}

	switch f.DefValue {
	case "", "0", "0s", "false", "[]":
	default:
		def := f.DefValue
		if f.Value.Type() == "string" {
			def = fmt.Sprintf("%q", def)
		}
		usage += " (default " + def + ")"
	}
	return name, usage
}

func writeFooter(w io.Writer, cmd *cobra.Command) {
	target := ""
	if cmd.HasAvailableSubCommands() {
		target = " " + ui.ColorYellow + "<command>" + ui.ColorReset + ui.ColorDim
	}
	fmt.Fprintf(w, "\n%sUse \"%s%s%s%s %s--help%s\" for more information.%s\n",
		ui.ColorDim,
		ui.ColorCyan, cmd.CommandPath(), ui.ColorReset+ui.ColorDim,
		target,
		ui.ColorGreen, ui.ColorReset+ui.ColorDim,
		ui.ColorReset)
}

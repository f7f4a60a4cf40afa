package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mdcanvas/pkg/session"
	"github.com/matzehuels/mdcanvas/pkg/shell"
)

// documentCommands take a document name as their first argument.
var documentCommands = []string{"inspect", "edit", "convert", "run", "explore", "refresh", "watch", "serve"}

// completionCommand creates the "completion" command.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for mdcanvas.

Completions cover document names from the document store and, for "run",
the names of the node commands.

  $ source <(mdcanvas completion bash)
  $ mdcanvas completion zsh > "${fpath[1]}/_mdcanvas"
  $ mdcanvas completion fish | source
  PS> mdcanvas completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// registerCompletions wires dynamic argument completion into the document
// commands below root.
func (c *CLI) registerCompletions(root *cobra.Command) {
	for _, cmd := range root.Commands() {
		if !slices.Contains(documentCommands, cmd.Name()) {
			continue
		}
		if cmd.Name() == "run" {
			cmd.ValidArgsFunction = c.completeRun
		} else {
			cmd.ValidArgsFunction = c.completeDocuments
		}
	}
}

// completeDocuments offers stored document names for the first argument.
func (c *CLI) completeDocuments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	return c.documentNames(cmd, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeRun offers document names, then node command names.
func (c *CLI) completeRun(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return c.documentNames(cmd, toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return withPrefix(commandNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveDefault
}

func (c *CLI) documentNames(cmd *cobra.Command, prefix string) []string {
	ctx := cmd.Context()
	store, err := c.newDocStore(ctx, c.newCache(ctx))
	if err != nil {
		return nil
	}
	defer store.Close()
	infos, err := store.List(ctx)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return withPrefix(names, prefix)
}

// commandNames lists the built-in node commands.
func commandNames() []string {
	return shell.New(session.New(session.Options{}), nil).Names()
}

func withPrefix(names []string, prefix string) []string {
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out
}

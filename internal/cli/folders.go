package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/explorer"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
	"github.com/matzehuels/mdcanvas/pkg/shell"
)

// exploreCommand creates the "explore" command.
func (c *CLI) exploreCommand() *cobra.Command {
	var static bool
	var parent string
	cmd := &cobra.Command{
		Use:   "explore <document> <path>",
		Short: "Add a folder explorer node mirroring a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer e.close()

			typ := metadata.ExplorerLinked
			if static {
				typ = metadata.ExplorerStatic
			}
			prog := newProgress(loggerFromContext(ctx))
			var root diagram.Node
			var rep explorer.Report
			err = c.withSpinner(ctx, "Scanning "+args[1]+"...", "Scan failed", func() error {
				var err error
				root, rep, err = e.sess.AttachFolder(ctx, args[1], typ, parent)
				return err
			})
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Scanned %d entries", rep.Added))

			if err := e.save(ctx); err != nil {
				return err
			}
			printSuccess("Added %s folder %s", typ, StyleHighlight.Render(root.Data.FolderExplorer.Path))
			printKeyValue("Node", root.ID)
			printKeyValue("Entries", fmt.Sprint(rep.Added))
			if typ == metadata.ExplorerLinked {
				printNextStep("Keep it in sync", fmt.Sprintf("%s watch %s", appName, args[0]))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&static, "static", false, "take a one-off editable snapshot instead of a linked, read-only mirror")
	cmd.Flags().StringVar(&parent, "parent", "", "node to place the explorer under")
	return cmd
}

// refreshCommand creates the "refresh" command.
func (c *CLI) refreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <document> [path]",
		Short: "Rescan linked folders",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer e.close()

			arg := ""
			if len(args) == 2 {
				arg = args[1]
			}
			var res shell.Result
			err = c.withSpinner(ctx, "Refreshing folders...", "Refresh failed", func() error {
				res = shell.New(e.sess, c.Logger).Dispatch(ctx, shell.Command{Name: shell.CmdRefreshFolder, Arg: arg})
				if !res.Success {
					return fmt.Errorf("refresh failed: %s", res.Message)
				}
				return nil
			})
			if err != nil {
				return err
			}
			saved, err := e.saveIfDirty(ctx)
			if err != nil {
				return err
			}
			printSuccess("%s", res.Message)
			if !saved {
				printDetail("no changes")
			}
			return nil
		},
	}
}

// watchCommand creates the "watch" command.
func (c *CLI) watchCommand() *cobra.Command {
	var debounce time.Duration
	var autosave time.Duration
	cmd := &cobra.Command{
		Use:   "watch <document>",
		Short: "Keep linked folders in sync with the disk",
		Long: `Watch every linked folder of a document and refresh its explorer when
files change. Changes are saved periodically and on exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.open(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer e.close()

			paths := e.sess.LinkedPaths()
			if len(paths) == 0 {
				printWarning("No linked folders in %s", args[0])
				return nil
			}
			w, err := explorer.NewWatcher(c.Logger)
			if err != nil {
				return err
			}
			defer w.Close()
			w.Debounce = debounce

			printInfo("Watching %d folder(s), press Ctrl+C to stop", len(paths))
			for _, p := range paths {
				printFile(p)
			}

			watchCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			errCh := make(chan error, 1)
			go func() { errCh <- e.sess.Watch(watchCtx, w) }()

			ticker := time.NewTicker(autosave)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if saved, err := e.saveIfDirty(ctx); err != nil {
						c.Logger.Error("autosave failed", "err", err)
					} else if saved {
						c.Logger.Info("saved changes", "document", args[0])
					}
				case err := <-errCh:
					if _, serr := e.saveIfDirty(context.WithoutCancel(ctx)); serr != nil {
						return serr
					}
					if stderrors.Is(err, context.Canceled) {
						printNewline()
						printSuccess("Stopped watching")
						return nil
					}
					return err
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", explorer.DefaultDebounce, "quiet period before a folder is rescanned")
	cmd.Flags().DurationVar(&autosave, "autosave", 5*time.Second, "how often pending changes are saved")
	return cmd
}

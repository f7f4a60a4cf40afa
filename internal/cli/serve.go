package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mdcanvas/internal/server"
	"github.com/matzehuels/mdcanvas/pkg/explorer"
	"github.com/matzehuels/mdcanvas/pkg/observability"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var scanTTL time.Duration
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve [document]",
		Short: "Serve a document over HTTP",
		Long: `Serve a document over a JSON API with Prometheus metrics at /metrics.
Without a document an empty, unnamed one is served; POST /save names it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prom := observability.NewPrometheus(appName)
			observability.Install(prom)
			defer observability.Reset()

			doc := ""
			if len(args) == 1 {
				doc = args[0]
			}
			e, err := c.open(ctx, doc, scanTTL)
			if err != nil {
				return err
			}
			defer e.close()

			if watch {
				w, err := explorer.NewWatcher(c.Logger)
				if err != nil {
					return err
				}
				defer w.Close()
				go func() {
					if err := e.sess.Watch(ctx, w); err != nil && ctx.Err() == nil {
						c.Logger.Error("watcher stopped", "err", err)
					}
				}()
			}

			srv := server.New(server.Options{
				Logger:  c.Logger,
				Session: e.sess,
				Metrics: prom.Handler(),
			})
			printInfo("Serving on %s", StyleLink.Render("http://"+addr))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().DurationVar(&scanTTL, "scan-ttl", 2*time.Second, "how long folder scans are reused (0 disables)")
	cmd.Flags().BoolVar(&watch, "watch", false, "refresh linked folders when they change on disk")
	return cmd
}

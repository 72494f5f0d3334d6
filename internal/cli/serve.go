package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/internal/server"
	"github.com/matzehuels/flowcraft/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace over a local HTTP API",
		Long: `Serve the workspace over a local HTTP API for a browser canvas.

Every change is saved to the workspace file. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.cfg.Server.Addr
			}

			store, sess, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			observability.SetHTTPHooks(observability.NewLogHTTPHooks(c.Logger))
			defer observability.Reset()

			renders := c.renderCache()
			defer renders.Close()

			srv := server.New(sess, server.Options{Store: store, Logger: c.Logger, Renders: renders})

			printSuccess("Serving workspace %s", StyleHighlight.Render(sess.ID()))
			printDetail("http://%s/api/graph", addr)
			printDetail("saving to %s", store.Path(sess.ID()))

			if err := srv.ListenAndServe(ctx, addr); err != nil {
				return err
			}
			// ctx is cancelled by now; the final save must still happen.
			return sess.Persist(context.WithoutCancel(ctx), store)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

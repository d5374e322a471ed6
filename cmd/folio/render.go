package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/render"
	"github.com/Zachkp/folio/internal/server"
)

func newRenderCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the page to static HTML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := a.newLoader().Load(cmd.Context())
			if err != nil {
				return err
			}
			renderer, err := render.New(render.WithThreshold(a.cfg.View.RevealThreshold))
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrapf(err, "failed to create %s", out)
				}
				defer f.Close()
				w = f
			}
			return server.WriteStatic(w, renderer, model, a.cfg.View.RevealThreshold)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

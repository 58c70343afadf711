package cli

import (
	"encoding/json"
	"time"

	"github.com/deepnoodle-ai/memfs/vpath"
	"github.com/deepnoodle-ai/memfs/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchJSON bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes made below the memory directory",
	Long: `Watch the memory root and print one line per change, named by its
virtual path. Runs until interrupted.

Examples:
  memfs watch --root ./memories
  memfs watch --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		resolver, err := vpath.NewResolver(s.tool.Root(), s.tool.MemoryDir())
		if err != nil {
			return err
		}
		w, err := watch.New(resolver, s.logger)
		if err != nil {
			return err
		}
		defer w.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return w.Run(ctx)
		})
		g.Go(func() error {
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for event := range w.Events() {
				if watchJSON {
					if err := enc.Encode(event); err != nil {
						return err
					}
					continue
				}
				if _, err := out.Write([]byte(renderEvent(event, time.Now().Format(time.TimeOnly)))); err != nil {
					return err
				}
			}
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print events as JSON lines")
}

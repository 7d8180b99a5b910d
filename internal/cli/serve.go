package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only dashboard of recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		host, _ := cmd.Flags().GetString("host")

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		srv := web.NewServer(d, artifactStore(), fmt.Sprintf("%s:%d", host, port))
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "localhost", "Interface to bind")
}
